package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chaz8081/f503i/internal/f503i"
	"github.com/chaz8081/f503i/internal/melody"
)

const defaultWait = 15 * time.Second

var ledCmd = &cobra.Command{
	Use:   "led <address> <left|center|right|all> <brightness|on|off>",
	Short: "Set LED brightness",
	Args:  cobra.ExactArgs(3),
	RunE:  runLED,
}

var buzzCmd = &cobra.Command{
	Use:   "buzz <address> <note>",
	Short: "Sound the buzzer on a note (e.g. A4, C#5)",
	Args:  cobra.ExactArgs(2),
	RunE:  runBuzz,
}

var playCmd = &cobra.Command{
	Use:   "play <address> <melody>",
	Short: `Play a melody, e.g. "C4:200 E4:200 G4:200 R:100 C5:400"`,
	Args:  cobra.ExactArgs(2),
	RunE:  runPlay,
}

var buzzDuration time.Duration

func init() {
	for _, c := range []*cobra.Command{ledCmd, buzzCmd, playCmd} {
		c.Flags().Duration("wait", defaultWait, "How long to wait for the handset to become ready")
	}
	buzzCmd.Flags().DurationVar(&buzzDuration, "duration", 500*time.Millisecond, "How long to sound the note")
}

func parseLEDArgs(ledArg, levelArg string) ([]f503i.LED, uint8, error) {
	var leds []f503i.LED
	if ledArg == "all" {
		leds = []f503i.LED{f503i.LEDLeft, f503i.LEDCenter, f503i.LEDRight}
	} else {
		led, ok := f503i.ParseLED(ledArg)
		if !ok {
			return nil, 0, fmt.Errorf("unknown LED %q (left, center, right or all)", ledArg)
		}
		leds = []f503i.LED{led}
	}

	switch levelArg {
	case "on":
		return leds, f503i.BrightnessMax, nil
	case "off":
		return leds, f503i.BrightnessOff, nil
	}
	n, err := strconv.ParseUint(levelArg, 10, 8)
	if err != nil {
		return nil, 0, fmt.Errorf("brightness must be 0..255, on or off, got %q", levelArg)
	}
	return leds, uint8(n), nil
}

func runLED(cmd *cobra.Command, args []string) error {
	leds, level, err := parseLEDArgs(args[1], args[2])
	if err != nil {
		return err
	}
	return withReadyDevice(cmd, args[:1], func(ctx context.Context, d *f503i.Device) error {
		for _, led := range leds {
			d.SetLEDBrightness(led, level)
			fmt.Printf("LED %s -> %s\n", led, color.CyanString("%d", level))
		}
		return nil
	})
}

func runBuzz(cmd *cobra.Command, args []string) error {
	note, err := f503i.ParseNote(args[1])
	if err != nil {
		return err
	}
	return withReadyDevice(cmd, args[:1], func(ctx context.Context, d *f503i.Device) error {
		fmt.Printf("Buzzing %s (%.1f Hz) for %s\n", color.CyanString(note.String()), note.Frequency(), buzzDuration)
		return melody.Play(ctx, d, melody.Melody{{Note: note, Duration: buzzDuration}})
	})
}

func runPlay(cmd *cobra.Command, args []string) error {
	m, err := melody.Parse(args[1])
	if err != nil {
		return err
	}
	return withReadyDevice(cmd, args[:1], func(ctx context.Context, d *f503i.Device) error {
		fmt.Printf("Playing %d notes (%s)\n", len(m), m.Duration())
		return melody.Play(ctx, d, m)
	})
}
