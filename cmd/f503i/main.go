package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "f503i",
	Short: "Drive an F503i BLE handset",
	Long: `f503i talks to an F503i handset over Bluetooth Low Energy:

- Scan for handsets advertising the F503i service
- Monitor key presses, the light sensor and the connection state
- Set LED brightness, ring the buzzer and play melodies
- Run a config-driven daemon that types key presses on the host,
  bridges the handset to websocket clients and pages it from a hotkey`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("ERROR:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(ledCmd)
	rootCmd.AddCommand(buzzCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.PersistentFlags().String("config", "", "path to config file (default: ~/.config/f503i/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().String("backend", "", "BLE backend (tinygo, goble); overrides the config")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable coloured output")
}
