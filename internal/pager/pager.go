// Package pager rings the handset buzzer from a global host hotkey, so
// the handset can be found when it has been put down somewhere.
package pager

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/chaz8081/f503i/internal/f503i"
)

// Buzzer is the part of f503i.Device the pager drives.
type Buzzer interface {
	TurnOnBuzzer(note f503i.Note)
	TurnOffBuzzer()
}

// Pager maps hotkey events to buzzer writes.
type Pager struct {
	buzzer Buzzer
	note   f503i.Note
	log    *logrus.Entry
}

// New creates a Pager that rings b on note.
func New(b Buzzer, note f503i.Note, logger *logrus.Logger) *Pager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pager{
		buzzer: b,
		note:   note,
		log:    logger.WithField("component", "pager"),
	}
}

// Run applies events until ctx is done or events is closed. The buzzer is
// silenced on return.
func (p *Pager) Run(ctx context.Context, events <-chan Event) {
	defer p.buzzer.TurnOffBuzzer()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.log.WithField("event", ev.Type).Debug("hotkey")
			switch ev.Type {
			case EventRing:
				p.buzzer.TurnOnBuzzer(p.note)
			case EventSilence:
				p.buzzer.TurnOffBuzzer()
			}
		}
	}
}
