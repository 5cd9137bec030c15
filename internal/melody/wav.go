package melody

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// DefaultSampleRate is used when RenderWAV is given a zero rate.
	DefaultSampleRate = 22050

	bitDepth  = 16
	amplitude = math.MaxInt16 * 3 / 10
	wavPCM    = 1
)

// RenderWAV writes m as a mono 16-bit square-wave WAV, roughly what the
// piezo buzzer sounds like.
func RenderWAV(w io.WriteSeeker, m Melody, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           renderSamples(m, sampleRate),
		SourceBitDepth: bitDepth,
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, wavPCM)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("melody: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("melody: close wav: %w", err)
	}
	return nil
}

// SampleCount returns how many samples d spans at sampleRate.
func SampleCount(d time.Duration, sampleRate int) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

func renderSamples(m Melody, sampleRate int) []int {
	total := 0
	for _, s := range m {
		total += SampleCount(s.Duration, sampleRate)
	}

	data := make([]int, 0, total)
	for _, s := range m {
		n := SampleCount(s.Duration, sampleRate)
		freq := s.Note.Frequency()
		for i := 0; i < n; i++ {
			if freq == 0 {
				data = append(data, 0)
				continue
			}
			_, frac := math.Modf(float64(i) * freq / float64(sampleRate))
			if frac < 0.5 {
				data = append(data, amplitude)
			} else {
				data = append(data, -amplitude)
			}
		}
	}
	return data
}
