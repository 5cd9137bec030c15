package f503i

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chaz8081/f503i/internal/ble"
)

// connectLoop owns client for the lifetime of one session. It connects,
// discovers, publishes handles and then watches the link, starting over
// whenever anything fails. It exits once ctx is cancelled, after
// disconnecting and closing client.
func (d *Device) connectLoop(ctx context.Context, client ble.Client, address string, done chan struct{}) {
	defer close(done)
	log := d.log.WithField("address", address)
	defer d.teardown(client, log)

	// Drop a wake-up left over from a previous session.
	select {
	case <-d.observer.wake:
	default:
	}

	d.setState(ctx, StateDisconnected)
	for ctx.Err() == nil {
		if !client.IsConnected() {
			d.setState(ctx, StateConnecting)
			if err := d.connect(ctx, client, address); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithError(err).Debug("connect failed")
				d.connectWarn.Do(func() {
					log.WithError(err).Warn("failed to connect, retrying")
				})
				d.setState(ctx, StateDisconnected)
				if !sleepCtx(ctx, d.opts.Timing.RetryInterval) {
					return
				}
				continue
			}
			log.Info("connected")
		}

		d.setState(ctx, StateDiscovering)
		if err := d.discoverAndPublish(ctx, client); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("discovery failed, disconnecting")
			d.clearHandles()
			if err := client.Disconnect(); err != nil {
				log.WithError(err).Debug("disconnect after failed discovery")
			}
			d.setState(ctx, StateDisconnected)
			if !sleepCtx(ctx, d.opts.Timing.RetryInterval) {
				return
			}
			continue
		}

		d.setState(ctx, StateReady)
		log.Info("handset ready")

		if !d.waitLinkLoss(ctx, client) {
			return
		}
		log.Warn("link lost, reconnecting")
		d.clearHandles()
		d.setState(ctx, StateDisconnected)
	}
}

func (d *Device) connect(ctx context.Context, client ble.Client, address string) error {
	cctx, cancel := context.WithTimeout(ctx, d.opts.Timing.ConnectTimeout)
	defer cancel()
	return client.Connect(cctx, address)
}

// charSlot pairs a characteristic UUID with where its handle goes.
type charSlot struct {
	uuid string
	dst  *ble.Characteristic
}

// discover resolves the service and every characteristic in a fixed
// order. On error the returned set is empty.
func discover(client ble.Client) (handles, error) {
	var h handles
	svc, err := client.Service(ServiceUUID)
	if err == nil && svc == nil {
		err = ble.ErrNotFound
	}
	if err != nil {
		return handles{}, fmt.Errorf("f503i: service %s: %w", ServiceUUID, err)
	}
	h.service = svc

	slots := []charSlot{
		{KeyCharUUID, &h.key},
		{ledCharUUIDs[LEDLeft], &h.led[LEDLeft]},
		{ledCharUUIDs[LEDCenter], &h.led[LEDCenter]},
		{ledCharUUIDs[LEDRight], &h.led[LEDRight]},
		{LightSensorConfigCharUUID, &h.lightConfig},
		{LightSensorCharUUID, &h.light},
		{BuzzerCharUUID, &h.buzzer},
	}
	for _, s := range slots {
		ch, err := svc.Characteristic(s.uuid)
		if err == nil && ch == nil {
			err = ble.ErrNotFound
		}
		if err != nil {
			return handles{}, fmt.Errorf("f503i: characteristic %s: %w", s.uuid, err)
		}
		*s.dst = ch
	}
	return h, nil
}

// discoverAndPublish runs discovery without holding the lock (the client
// belongs to the loop here), installs notification handlers, enables
// light-sensor notifications and finally publishes all handles at once.
func (d *Device) discoverAndPublish(ctx context.Context, client ble.Client) error {
	h, err := discover(client)
	if err != nil {
		return err
	}

	if h.key.CanNotify() {
		if err := h.key.Subscribe(d.handleKeyNotify); err != nil {
			return fmt.Errorf("f503i: subscribe to keys: %w", err)
		}
	} else {
		d.log.WithField("uuid", KeyCharUUID).Warn("key characteristic cannot notify")
	}

	if err := h.lightConfig.Write(enableNotify, true); err != nil {
		return fmt.Errorf("f503i: enable light sensor notifications: %w", err)
	}
	if h.light.CanNotify() {
		if err := h.light.Subscribe(d.handleLightNotify); err != nil {
			return fmt.Errorf("f503i: subscribe to light sensor: %w", err)
		}
	} else {
		d.log.WithField("uuid", LightSensorCharUUID).Warn("light sensor characteristic cannot notify")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// End may have run while we were discovering.
	if err := ctx.Err(); err != nil {
		return err
	}
	d.chars = h
	return nil
}

// waitLinkLoss polls the link while ready. It returns false when the
// session was cancelled and true when the link went down.
func (d *Device) waitLinkLoss(ctx context.Context, client ble.Client) bool {
	ticker := time.NewTicker(d.opts.Timing.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-d.observer.wake:
		case <-ticker.C:
		}
		if !client.IsConnected() {
			return ctx.Err() == nil
		}
	}
}

func (d *Device) clearHandles() {
	d.mu.Lock()
	held := d.chars.ready()
	d.chars = handles{}
	d.mu.Unlock()
	if held {
		d.log.Debug("characteristic handles released")
	}
}

// teardown runs as the loop exits. The loop is the only goroutine that
// touches client at this point, so it is the one to release it.
func (d *Device) teardown(client ble.Client, log *logrus.Entry) {
	d.clearHandles()
	if client.IsConnected() {
		if err := client.Disconnect(); err != nil {
			log.WithError(err).Warn("disconnect on shutdown")
		}
	}
	if err := client.Close(); err != nil {
		log.WithError(err).Debug("close client")
	}
	log.Debug("connect loop stopped")
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
