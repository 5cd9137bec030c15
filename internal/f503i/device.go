package f503i

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/chaz8081/f503i/internal/ble"
)

// ErrAlreadyBegun is returned by Begin while a session is active.
var ErrAlreadyBegun = errors.New("f503i: already begun")

// Timing configures the connect loop's pacing. Zero fields take the
// values in the default tags.
type Timing struct {
	RetryInterval  time.Duration `default:"1s"`  // wait after a failed connect or discovery
	PollInterval   time.Duration `default:"1s"`  // link check period while ready
	ConnectTimeout time.Duration `default:"10s"` // bound on a single connect attempt
}

// Options configures a Device.
type Options struct {
	Timing Timing
	Logger *logrus.Logger

	// Optional hooks, called after the cache is updated and outside the
	// device lock, on the transport's or the connect loop's goroutine.
	// They must not block. OnState runs on the connect loop, which End
	// waits for: calling End directly from OnState deadlocks, so hand it
	// to another goroutine (go d.End()).
	OnKeys  func(KeyState)
	OnLight func(level uint16)
	OnState func(ConnState)
}

// DefaultOptions returns Options with default timing and the standard logger.
func DefaultOptions() Options {
	var opts Options
	opts.applyDefaults()
	return opts
}

func (o *Options) applyDefaults() {
	defaults.SetDefaults(&o.Timing)
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// handles is the discovered GATT surface of one connection. It is either
// fully populated or the zero value.
type handles struct {
	service     ble.Service
	key         ble.Characteristic
	led         [LEDCount]ble.Characteristic
	lightConfig ble.Characteristic
	light       ble.Characteristic
	buzzer      ble.Characteristic
}

func (h handles) ready() bool {
	return h.service != nil
}

// Device is an F503i handset. All methods are safe for concurrent use.
type Device struct {
	adapter  ble.Adapter
	opts     Options
	log      *logrus.Entry
	observer *linkObserver

	// connectWarn throttles repeated connect failure warnings.
	connectWarn rate.Sometimes

	// mu guards everything below, shared between callers, the connect
	// loop and notification handlers.
	mu      sync.Mutex
	address string
	client  ble.Client         // non-nil between Begin and End
	cancel  context.CancelFunc // stops the current connect loop
	done    chan struct{}      // closed when the connect loop has exited
	state   ConnState
	chars   handles
	keys    KeyState
	light   uint16
}

// New creates a Device that will talk through adapter. Call Begin to
// start connecting.
func New(adapter ble.Adapter, opts Options) *Device {
	opts.applyDefaults()
	return &Device{
		adapter:     adapter,
		opts:        opts,
		log:         opts.Logger.WithField("component", "f503i"),
		observer:    newLinkObserver(),
		connectWarn: rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

// Begin starts a session with the handset at address. It returns once the
// client is allocated and the connect loop is running; the link itself
// comes up later, see IsConnected and State.
func (d *Device) Begin(address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A previous session may still be tearing down after a concurrent End.
	for d.client == nil && d.done != nil {
		done := d.done
		d.mu.Unlock()
		<-done
		d.mu.Lock()
		if d.done == done {
			d.done = nil
		}
	}
	if d.client != nil {
		return ErrAlreadyBegun
	}

	client, err := d.adapter.NewClient()
	if err != nil {
		d.log.WithError(err).Error("failed to create BLE client")
		return fmt.Errorf("f503i: create client: %w", err)
	}
	if client == nil {
		return fmt.Errorf("f503i: create client: adapter returned no client")
	}
	client.SetObserver(d.observer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.address = address
	d.client = client
	d.cancel = cancel
	d.done = done
	d.chars = handles{}

	go d.connectLoop(ctx, client, address, done)
	return nil
}

// End stops the session: the connect loop is cancelled, characteristic
// handles are cleared, and End waits until the loop has disconnected and
// released the client. Safe to call repeatedly or without Begin.
func (d *Device) End() {
	d.mu.Lock()
	if d.client != nil {
		d.cancel()
		d.cancel = nil
		d.client = nil
		d.chars = handles{}
	}
	done := d.done
	d.mu.Unlock()

	if done == nil {
		return
	}
	<-done

	d.mu.Lock()
	if d.done == done {
		d.done = nil
	}
	idle := d.client == nil && d.state != StateIdle
	if idle {
		d.state = StateIdle
	}
	d.mu.Unlock()
	if idle && d.opts.OnState != nil {
		d.opts.OnState(StateIdle)
	}
}

// IsConnected reports the transport's last connect/disconnect event. It
// does not imply discovery has finished; see State for that.
func (d *Device) IsConnected() bool {
	return d.observer.isConnected()
}

// State returns the connect loop's current phase.
func (d *Device) State() ConnState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Address returns the address passed to the last Begin.
func (d *Device) Address() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.address
}

// KeyValue returns the last reported keypad bitmap.
func (d *Device) KeyValue() KeyState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys
}

// IsKeyOn reports whether key was down in the last key notification.
func (d *Device) IsKeyOn(key Key) bool {
	return IsKeyOn(d.KeyValue(), key)
}

// LightSensorValue returns the last reported light level in raw units.
func (d *Device) LightSensorValue() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.light
}

// TurnOnLED sets led to full brightness.
func (d *Device) TurnOnLED(led LED) {
	d.SetLEDBrightness(led, BrightnessMax)
}

// TurnOffLED switches led off.
func (d *Device) TurnOffLED(led LED) {
	d.SetLEDBrightness(led, BrightnessOff)
}

// SetLEDBrightness writes brightness to led. Out-of-range LEDs and writes
// while the handset is not ready are silently dropped.
func (d *Device) SetLEDBrightness(led LED, brightness uint8) {
	if !led.valid() {
		return
	}
	d.mu.Lock()
	ch := d.chars.led[led]
	d.mu.Unlock()
	d.write(ch, brightness)
}

// TurnOnBuzzer starts the buzzer on note. Dropped while not ready.
func (d *Device) TurnOnBuzzer(note Note) {
	d.mu.Lock()
	ch := d.chars.buzzer
	d.mu.Unlock()
	d.write(ch, uint8(note))
}

// TurnOffBuzzer silences the buzzer. Dropped while not ready.
func (d *Device) TurnOffBuzzer() {
	d.TurnOnBuzzer(NoteOff)
}

// write sends a single-byte value without response. mu must not be held:
// transports deliver notifications under their own lock, and the
// notification handlers take mu. A handle cleared by a concurrent
// teardown only fails the write. Errors are transient link problems the
// connect loop recovers from, so they are only logged.
func (d *Device) write(ch ble.Characteristic, value uint8) {
	if ch == nil {
		return
	}
	if err := ch.Write([]byte{value}, false); err != nil {
		d.log.WithFields(logrus.Fields{
			"uuid":  ch.UUID(),
			"error": err,
		}).Debug("write dropped")
	}
}

// setState records the loop phase for the session owning ctx. A loop that
// has been cancelled no longer reports.
func (d *Device) setState(ctx context.Context, s ConnState) {
	d.mu.Lock()
	if ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	changed := d.state != s
	d.state = s
	d.mu.Unlock()
	if changed && d.opts.OnState != nil {
		d.opts.OnState(s)
	}
}
