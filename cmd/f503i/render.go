package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaz8081/f503i/internal/melody"
)

var renderCmd = &cobra.Command{
	Use:   "render <melody>",
	Short: "Render a melody to a WAV file to preview it without a handset",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var (
	renderOutput string
	renderRate   int
)

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "melody.wav", "Output WAV file")
	renderCmd.Flags().IntVar(&renderRate, "rate", melody.DefaultSampleRate, "Sample rate in Hz")
}

func runRender(cmd *cobra.Command, args []string) error {
	m, err := melody.Parse(args[0])
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	f, err := os.Create(renderOutput)
	if err != nil {
		return fmt.Errorf("creating %s: %w", renderOutput, err)
	}
	if err := melody.RenderWAV(f, m, renderRate); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", renderOutput, err)
	}
	fmt.Printf("Wrote %s (%s)\n", renderOutput, m.Duration())
	return nil
}
