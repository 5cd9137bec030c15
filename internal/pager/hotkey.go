package pager

import (
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType says whether the handset should ring or fall silent.
type EventType int

const (
	EventRing EventType = iota
	EventSilence
)

func (t EventType) String() string {
	if t == EventRing {
		return "ring"
	}
	return "silence"
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener watches a global hotkey combo with gohook.
type Listener struct {
	keys []string
	mode string // "hold" or "toggle"
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given key combo and mode.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "p"]).
func NewListener(keys []string, mode string) *Listener {
	return &Listener{
		keys: keys,
		mode: mode,
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events. It is closed
// once the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Combo renders the key combo, e.g. "ctrl+shift+p".
func (l *Listener) Combo() string {
	return strings.Join(l.keys, "+")
}

// Start registers the hotkey and blocks until Stop is called.
func (l *Listener) Start() {
	if l.mode == "toggle" {
		t := &toggle{}
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) {
			l.emit(t.press())
		})
	} else {
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) {
			l.emit(EventRing)
		})
		hook.Register(hook.KeyUp, l.keys, func(hook.Event) {
			l.emit(EventSilence)
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit never blocks the hook goroutine; a full channel drops the event.
func (l *Listener) emit(t EventType) {
	select {
	case l.ch <- Event{Type: t}:
	default:
	}
}

// Stop terminates the listener. It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// toggle alternates ring and silence on each press.
type toggle struct {
	mu      sync.Mutex
	ringing bool
}

func (t *toggle) press() EventType {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ringing = !t.ringing
	if t.ringing {
		return EventRing
	}
	return EventSilence
}
