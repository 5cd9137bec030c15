package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chaz8081/f503i/internal/f503i"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for F503i handsets",
	Long: `Scan for Bluetooth Low Energy devices advertising the F503i service
and list their names, addresses and signal strength.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanAll      bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 5*time.Second, "Scan duration")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "List every device, not only F503i handsets")
}

func runScan(cmd *cobra.Command, args []string) error {
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, scanDuration)
	defer cancel()

	filter := f503i.ServiceUUID
	if scanAll {
		filter = ""
	}

	fmt.Printf("Scanning for %s...\n", scanDuration)
	devices, err := s.adapter.Scan(ctx, filter)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if len(devices) == 0 {
		color.Yellow("No handsets found.")
		return nil
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].RSSI > devices[j].RSSI })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI")
	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", color.CyanString(d.Address), name, d.RSSI)
	}
	return w.Flush()
}
