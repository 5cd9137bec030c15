//go:build linux

package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// notifyQueueSize bounds the values buffered per subscription.
const notifyQueueSize = 32

// GoBLEAdapter drives the local HCI controller directly through
// go-ble/ble instead of going through BlueZ. Requires CAP_NET_ADMIN
// (or root) and a controller not claimed by bluetoothd.
type GoBLEAdapter struct {
	enableOnce sync.Once
	enableErr  error
	dev        goble.Device
}

// NewGoBLEAdapter creates an adapter using the default HCI device.
func NewGoBLEAdapter() (*GoBLEAdapter, error) {
	return &GoBLEAdapter{}, nil
}

var _ Adapter = (*GoBLEAdapter)(nil)

func (a *GoBLEAdapter) Enable() error {
	a.enableOnce.Do(func() {
		dev, err := linux.NewDevice()
		if err != nil {
			a.enableErr = fmt.Errorf("ble: open HCI device: %w", err)
			return
		}
		a.dev = dev
		goble.SetDefaultDevice(dev)
	})
	return a.enableErr
}

func (a *GoBLEAdapter) Scan(ctx context.Context, serviceUUID string) ([]Device, error) {
	if err := a.Enable(); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var devices []Device
	seen := make(map[string]bool)

	// An empty serviceUUID lists every advertiser.
	var filter goble.AdvFilter
	if serviceUUID != "" {
		want, err := goble.Parse(serviceUUID)
		if err != nil {
			return nil, fmt.Errorf("ble: parse service UUID: %w", err)
		}
		filter = func(adv goble.Advertisement) bool {
			for _, u := range adv.Services() {
				if u.Equal(want) {
					return true
				}
			}
			return false
		}
	}
	handler := func(adv goble.Advertisement) {
		addr := adv.Addr().String()
		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true
		devices = append(devices, Device{
			Name:    adv.LocalName(),
			Address: addr,
			RSSI:    adv.RSSI(),
		})
	}

	err := goble.Scan(ctx, false, handler, filter)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

func (a *GoBLEAdapter) NewClient() (Client, error) {
	if err := a.Enable(); err != nil {
		return nil, err
	}
	return &gobleClient{}, nil
}

type gobleClient struct {
	mu        sync.Mutex
	client    goble.Client
	profile   *goble.Profile
	connected bool
	observer  Observer
}

func (c *gobleClient) SetObserver(o Observer) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

func (c *gobleClient) Connect(ctx context.Context, address string) error {
	cln, err := goble.Dial(ctx, goble.NewAddr(address))
	if err != nil {
		return fmt.Errorf("ble: connect to %s: %w", address, err)
	}

	profile, err := cln.DiscoverProfile(true)
	if err != nil {
		_ = cln.CancelConnection()
		return fmt.Errorf("ble: discover profile of %s: %w", address, err)
	}

	c.mu.Lock()
	c.client = cln
	c.profile = profile
	c.connected = true
	obs := c.observer
	c.mu.Unlock()

	go func() {
		<-cln.Disconnected()
		c.handleDisconnect(cln)
	}()

	if obs != nil {
		obs.OnConnect()
	}
	return nil
}

func (c *gobleClient) handleDisconnect(cln goble.Client) {
	c.mu.Lock()
	if c.client != cln {
		c.mu.Unlock()
		return
	}
	was := c.connected
	c.connected = false
	obs := c.observer
	c.mu.Unlock()
	if was && obs != nil {
		obs.OnDisconnect()
	}
}

func (c *gobleClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *gobleClient) Disconnect() error {
	c.mu.Lock()
	cln := c.client
	c.mu.Unlock()
	if cln == nil {
		return nil
	}
	err := cln.CancelConnection()
	c.handleDisconnect(cln)
	if err != nil {
		return fmt.Errorf("ble: disconnect: %w", err)
	}
	return nil
}

func (c *gobleClient) Service(uuid string) (Service, error) {
	c.mu.Lock()
	cln, profile, connected := c.client, c.profile, c.connected
	c.mu.Unlock()
	if cln == nil || profile == nil || !connected {
		return nil, ErrNotConnected
	}

	u, err := goble.Parse(uuid)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}
	svc := profile.FindService(goble.NewService(u))
	if svc == nil {
		return nil, fmt.Errorf("ble: service %s: %w", uuid, ErrNotFound)
	}
	return &gobleService{client: cln, svc: svc, uuid: NormalizeUUID(uuid)}, nil
}

func (c *gobleClient) Close() error {
	var err error
	if c.IsConnected() {
		err = c.Disconnect()
	}
	c.mu.Lock()
	c.client = nil
	c.profile = nil
	c.observer = nil
	c.mu.Unlock()
	return err
}

type gobleService struct {
	client goble.Client
	svc    *goble.Service
	uuid   string
}

func (s *gobleService) UUID() string { return s.uuid }

func (s *gobleService) Characteristic(uuid string) (Characteristic, error) {
	u, err := goble.Parse(uuid)
	if err != nil {
		return nil, fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}
	for _, ch := range s.svc.Characteristics {
		if ch.UUID.Equal(u) {
			return &gobleCharacteristic{client: s.client, char: ch, uuid: NormalizeUUID(uuid)}, nil
		}
	}
	return nil, fmt.Errorf("ble: characteristic %s: %w", uuid, ErrNotFound)
}

type gobleCharacteristic struct {
	client goble.Client
	char   *goble.Characteristic
	uuid   string
}

func (c *gobleCharacteristic) UUID() string { return c.uuid }

func (c *gobleCharacteristic) CanNotify() bool {
	return c.char.Property&(goble.CharNotify|goble.CharIndicate) != 0
}

// Subscribe delivers values on a goroutine of its own. go-ble invokes the
// handler with the client locked, and cb must be free to write back
// through the same client.
func (c *gobleCharacteristic) Subscribe(cb func([]byte)) error {
	indicate := c.char.Property&goble.CharNotify == 0
	queue := make(chan []byte, notifyQueueSize)
	gone := c.client.Disconnected()
	err := c.client.Subscribe(c.char, indicate, func(req []byte) {
		buf := append([]byte(nil), req...)
		select {
		case queue <- buf:
		default:
			// Consumer is behind; the next value supersedes this one.
		}
	})
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case buf := <-queue:
				cb(buf)
			case <-gone:
				return
			}
		}
	}()
	return nil
}

func (c *gobleCharacteristic) Write(data []byte, withResponse bool) error {
	return c.client.WriteCharacteristic(c.char, data, !withResponse)
}
