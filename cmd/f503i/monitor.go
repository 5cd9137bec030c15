package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chaz8081/f503i/internal/f503i"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [address]",
	Short: "Print key presses, light level and connection changes",
	Long: `Connect to a handset and print every key notification, light sensor
reading and connection state change until interrupted. The connection is
re-established automatically when the handset goes out of range.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

var monitorQuietLight bool

func init() {
	monitorCmd.Flags().BoolVar(&monitorQuietLight, "no-light", false, "Do not print light sensor readings")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	addr, err := s.address(args)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var prev f503i.KeyState
	opts := s.options()
	opts.OnKeys = func(keys f503i.KeyState) {
		for _, k := range keys.Pressed(prev) {
			fmt.Printf("%s key %s down  [%s]\n", stamp(), color.GreenString(k.String()), keys)
		}
		for _, k := range keys.Released(prev) {
			fmt.Printf("%s key %s up    [%s]\n", stamp(), color.HiBlackString(k.String()), keys)
		}
		prev = keys
	}
	if !monitorQuietLight {
		opts.OnLight = func(level uint16) {
			fmt.Printf("%s light %s\n", stamp(), color.BlueString("%d", level))
		}
	}
	opts.OnState = func(state f503i.ConnState) {
		c := color.YellowString
		if state == f503i.StateReady {
			c = color.GreenString
		}
		fmt.Printf("%s state %s\n", stamp(), c("%s", state))
	}

	d := f503i.New(s.adapter, opts)
	if err := d.Begin(addr); err != nil {
		return err
	}
	defer d.End()

	fmt.Printf("Monitoring %s. Ctrl+C to quit.\n", addr)
	<-ctx.Done()
	return context.Canceled
}

func stamp() string {
	return color.HiBlackString(time.Now().Format("15:04:05.000"))
}
