package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chaz8081/f503i/internal/bridge"
	"github.com/chaz8081/f503i/internal/config"
	"github.com/chaz8081/f503i/internal/f503i"
	"github.com/chaz8081/f503i/internal/keypad"
	"github.com/chaz8081/f503i/internal/pager"
)

var runCmd = &cobra.Command{
	Use:   "run [address]",
	Short: "Run the handset daemon described by the config",
	Long: `Keep a handset connected and, depending on the config:

- keypad: type handset key presses on the host keyboard
- bridge: serve key, light and state events over a websocket
- pager:  ring the handset while a host hotkey is held (or toggled)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	addr, err := s.address(args)
	if err != nil {
		return err
	}
	cfg := s.cfg

	ctx, stop := signalContext()
	defer stop()

	var kp *keypad.Keypad
	if cfg.Keypad.Enabled {
		kp = keypad.New(cfg.Keypad.Method, cfg.KeyNames(), nil, s.log)
	}

	// br is set before Begin, so the hooks never see it change.
	var br *bridge.Server

	opts := s.options()
	opts.OnKeys = func(k f503i.KeyState) {
		if kp != nil {
			kp.Handle(k)
		}
		if br != nil {
			br.OnKeys(k)
		}
	}
	opts.OnLight = func(level uint16) {
		if br != nil {
			br.OnLight(level)
		}
	}
	opts.OnState = func(st f503i.ConnState) {
		s.log.WithField("state", st).Info("handset state")
		// Keys held when the link dropped would otherwise stay down.
		if kp != nil && st != f503i.StateReady {
			kp.Reset()
		}
		if br != nil {
			br.OnState(st)
		}
	}

	d := f503i.New(s.adapter, opts)
	if cfg.Bridge.Enabled {
		br = bridge.NewServer(d, s.log)
	}

	printBanner(cfg, addr)

	if err := d.Begin(addr); err != nil {
		return err
	}
	defer d.End()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if br != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := br.ListenAndServe(ctx, cfg.Bridge.Listen); err != nil {
				errCh <- err
				stop()
			}
		}()
	}

	if cfg.Pager.Enabled {
		listener := pager.NewListener(cfg.Pager.Keys, cfg.Pager.Mode)
		pg := pager.New(d, cfg.PagerNote(), s.log)
		go listener.Start()
		wg.Add(1)
		go func() {
			defer wg.Done()
			pg.Run(ctx, listener.Events())
		}()
		go func() {
			<-ctx.Done()
			listener.Stop()
		}()
	}

	fmt.Println("Running. Ctrl+C to quit.")
	<-ctx.Done()
	wg.Wait()
	if kp != nil {
		kp.Reset()
	}

	select {
	case err := <-errCh:
		return err
	default:
		return context.Canceled
	}
}

func onOff(b bool) string {
	if b {
		return color.GreenString("on")
	}
	return color.HiBlackString("off")
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, addr string) {
	fmt.Println("=== f503i ===")
	fmt.Printf("  Handset: %s (%s backend)\n", color.CyanString(addr), cfg.Device.Backend)
	fmt.Printf("  Keypad:  %s (%s)\n", onOff(cfg.Keypad.Enabled), cfg.Keypad.Method)
	fmt.Printf("  Bridge:  %s (%s)\n", onOff(cfg.Bridge.Enabled), cfg.Bridge.Listen)
	fmt.Printf("  Pager:   %s (%s, %s mode, %s)\n", onOff(cfg.Pager.Enabled), strings.Join(cfg.Pager.Keys, "+"), cfg.Pager.Mode, cfg.PagerNote())
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("=============")
}
