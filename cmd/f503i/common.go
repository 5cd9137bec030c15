package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chaz8081/f503i/internal/ble"
	"github.com/chaz8081/f503i/internal/config"
	"github.com/chaz8081/f503i/internal/f503i"
)

// setup is what every device command needs: config, logger and adapter.
type setup struct {
	cfg     *config.Config
	log     *logrus.Logger
	adapter ble.Adapter
}

func newSetup(cmd *cobra.Command) (*setup, error) {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, fromFile, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Device.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	if fromFile != "" {
		logger.WithField("path", fromFile).Debug("config loaded")
	}

	// Arguments and config are fine; runtime errors should not print usage.
	cmd.SilenceUsage = true

	adapter, err := ble.NewAdapter(cfg.Device.Backend)
	if err != nil {
		return nil, err
	}
	return &setup{cfg: cfg, log: logger, adapter: adapter}, nil
}

// loadConfig loads the config from path, or the default config path if it
// exists, or falls back to built-in defaults. It also returns the file the
// config came from, if any.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, defaultPath, nil
	}
	return config.Default(), "", nil
}

// address picks the handset address from the first argument or the config.
func (s *setup) address(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if s.cfg.Device.Address != "" {
		return s.cfg.Device.Address, nil
	}
	return "", fmt.Errorf("no handset address: pass one or set device.address (see \"f503i scan\")")
}

// options returns driver options with the configured timing and logger.
func (s *setup) options() f503i.Options {
	return f503i.Options{Timing: s.cfg.Timing(), Logger: s.log}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// waitReady blocks until d reaches StateReady, ctx is done or timeout
// passes.
func waitReady(ctx context.Context, d *f503i.Device, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for d.State() != f503i.StateReady {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("handset %s not ready after %s (state %s)", d.Address(), timeout, d.State())
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// withReadyDevice connects, waits until ready, runs fn and ends the session.
func withReadyDevice(cmd *cobra.Command, args []string, fn func(ctx context.Context, d *f503i.Device) error) error {
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	addr, err := s.address(args)
	if err != nil {
		return err
	}
	wait, _ := cmd.Flags().GetDuration("wait")

	ctx, stop := signalContext()
	defer stop()

	d := f503i.New(s.adapter, s.options())
	if err := d.Begin(addr); err != nil {
		return err
	}
	defer d.End()

	if err := waitReady(ctx, d, wait); err != nil {
		return err
	}
	return fn(ctx, d)
}
