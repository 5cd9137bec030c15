// Package keypad turns handset key presses into host keystrokes using
// robotgo.
package keypad

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
	"github.com/sirupsen/logrus"

	"github.com/chaz8081/f503i/internal/f503i"
)

// Sender emits keystrokes on the host.
type Sender interface {
	KeyDown(name string) error
	KeyUp(name string) error
	Tap(name string) error
}

// RobotSender sends keystrokes through robotgo.
type RobotSender struct{}

var _ Sender = RobotSender{}

func (RobotSender) KeyDown(name string) error {
	if err := robotgo.KeyToggle(name, "down"); err != nil {
		return fmt.Errorf("keypad: key down %q: %w", name, err)
	}
	return nil
}

func (RobotSender) KeyUp(name string) error {
	if err := robotgo.KeyToggle(name, "up"); err != nil {
		return fmt.Errorf("keypad: key up %q: %w", name, err)
	}
	return nil
}

func (RobotSender) Tap(name string) error {
	if err := robotgo.KeyTap(name); err != nil {
		return fmt.Errorf("keypad: key tap %q: %w", name, err)
	}
	return nil
}

// DefaultNames maps each handset key to the host key it sends unless
// overridden.
func DefaultNames() map[f503i.Key]string {
	names := make(map[f503i.Key]string, f503i.KeyCount)
	for k := f503i.Key0; k <= f503i.Key9; k++ {
		names[k] = string(f503i.KeyIndexToChar(k))
	}
	names[f503i.KeyAsterisk] = "backspace"
	names[f503i.KeySharp] = "enter"
	return names
}

// Keypad mirrors the handset keypad on the host keyboard.
type Keypad struct {
	method string // "type" or "tap"
	sender Sender
	names  map[f503i.Key]string
	log    *logrus.Entry

	mu   sync.Mutex
	prev f503i.KeyState
}

// New creates a Keypad. method "type" holds the host key down for as long
// as the handset key is held; "tap" sends one tap per press. overrides
// replace entries of DefaultNames.
func New(method string, overrides map[f503i.Key]string, sender Sender, logger *logrus.Logger) *Keypad {
	if sender == nil {
		sender = RobotSender{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	names := DefaultNames()
	for k, name := range overrides {
		names[k] = name
	}
	return &Keypad{
		method: method,
		sender: sender,
		names:  names,
		log:    logger.WithField("component", "keypad"),
	}
}

// Handle takes a key bitmap from the handset. It matches the signature of
// f503i.Options.OnKeys.
func (k *Keypad) Handle(state f503i.KeyState) {
	k.mu.Lock()
	defer k.mu.Unlock()

	pressed := state.Pressed(k.prev)
	released := state.Released(k.prev)
	k.prev = state

	for _, key := range pressed {
		name := k.names[key]
		var err error
		if k.method == "tap" {
			err = k.sender.Tap(name)
		} else {
			err = k.sender.KeyDown(name)
		}
		if err != nil {
			k.log.WithError(err).WithField("key", key).Warn("keystroke failed")
		}
	}
	if k.method == "tap" {
		return
	}
	for _, key := range released {
		if err := k.sender.KeyUp(k.names[key]); err != nil {
			k.log.WithError(err).WithField("key", key).Warn("keystroke failed")
		}
	}
}

// Reset releases every host key still held, e.g. after the handset link
// dropped mid-press.
func (k *Keypad) Reset() {
	k.Handle(0)
}
