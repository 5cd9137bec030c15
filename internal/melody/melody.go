// Package melody sequences notes on the handset buzzer and renders them
// to WAV for previewing on the host.
package melody

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chaz8081/f503i/internal/f503i"
)

const (
	// DefaultStep is the duration of a note written without one.
	DefaultStep = 250 * time.Millisecond
	// MaxStep is the longest duration a step may be given.
	MaxStep = time.Minute
)

// Step is one note (or rest) held for Duration.
type Step struct {
	Note     f503i.Note
	Duration time.Duration
}

// Melody is a sequence of steps.
type Melody []Step

// Parse reads a melody such as "C4:200 E4:200 R:100 G4:400". Steps are
// separated by spaces or commas, durations are milliseconds up to MaxStep
// and default to DefaultStep. Rests are written R, REST, OFF or -.
func Parse(s string) (Melody, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("melody: empty")
	}

	m := make(Melody, 0, len(fields))
	for i, field := range fields {
		name, dur, hasDur := strings.Cut(field, ":")
		note, err := f503i.ParseNote(name)
		if err != nil {
			return nil, fmt.Errorf("melody: step %d: %w", i+1, err)
		}
		d := DefaultStep
		if hasDur {
			ms, err := strconv.ParseInt(dur, 10, 64)
			if err != nil || ms <= 0 {
				return nil, fmt.Errorf("melody: step %d: bad duration %q", i+1, dur)
			}
			if ms > MaxStep.Milliseconds() {
				return nil, fmt.Errorf("melody: step %d: duration %q exceeds %v", i+1, dur, MaxStep)
			}
			d = time.Duration(ms) * time.Millisecond
		}
		m = append(m, Step{Note: note, Duration: d})
	}
	return m, nil
}

// Duration returns the total playing time.
func (m Melody) Duration() time.Duration {
	var total time.Duration
	for _, s := range m {
		total += s.Duration
	}
	return total
}

func (m Melody) String() string {
	parts := make([]string, len(m))
	for i, s := range m {
		name := s.Note.String()
		if s.Note == f503i.NoteOff {
			name = "R"
		}
		parts[i] = fmt.Sprintf("%s:%d", name, s.Duration.Milliseconds())
	}
	return strings.Join(parts, " ")
}

// Buzzer is the part of f503i.Device that Play drives.
type Buzzer interface {
	TurnOnBuzzer(note f503i.Note)
	TurnOffBuzzer()
}

// Play sounds m on b and returns when it has finished or ctx is done. The
// buzzer is always left off.
func Play(ctx context.Context, b Buzzer, m Melody) error {
	defer b.TurnOffBuzzer()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for _, s := range m {
		if s.Note == f503i.NoteOff {
			b.TurnOffBuzzer()
		} else {
			b.TurnOnBuzzer(s.Note)
		}
		timer.Reset(s.Duration)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
