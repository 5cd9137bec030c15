package ble

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinyGoAdapter wraps tinygo-org/bluetooth (BlueZ on Linux, CoreBluetooth
// on macOS, WinRT on Windows). On macOS device addresses are CoreBluetooth
// UUIDs rather than MAC addresses; both are accepted as address strings.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	// mu protects the clients map.
	mu      sync.Mutex
	clients map[string]*tinygoClient // keyed by normalized address
}

// NewTinyGoAdapter creates a new BLE adapter backed by the default
// tinygo bluetooth adapter.
func NewTinyGoAdapter() *TinyGoAdapter {
	return &TinyGoAdapter{
		adapter: bluetooth.DefaultAdapter,
		clients: make(map[string]*tinygoClient),
	}
}

// Compile-time check that TinyGoAdapter implements Adapter.
var _ Adapter = (*TinyGoAdapter)(nil)

func (a *TinyGoAdapter) Enable() error {
	a.enableOnce.Do(func() {
		if err := a.adapter.Enable(); err != nil {
			a.enableErr = fmt.Errorf("ble: enable adapter: %w", err)
			return
		}

		// The adapter-level handler is the only disconnect signal tinygo
		// gives us. Connect events are reported by tinygoClient.Connect
		// itself, since the handler fires before the client is registered.
		a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
			if connected {
				return
			}
			id := NormalizeAddress(device.Address.String())
			a.mu.Lock()
			c, ok := a.clients[id]
			a.mu.Unlock()
			if ok {
				c.handleDisconnect()
			}
		})
	})
	return a.enableErr
}

func (a *TinyGoAdapter) Scan(ctx context.Context, serviceUUID string) ([]Device, error) {
	if err := a.Enable(); err != nil {
		return nil, err
	}
	// An empty serviceUUID lists every advertiser.
	var uuid bluetooth.UUID
	filter := serviceUUID != ""
	if filter {
		var err error
		uuid, err = bluetooth.ParseUUID(serviceUUID)
		if err != nil {
			return nil, fmt.Errorf("ble: parse service UUID: %w", err)
		}
	}

	var mu sync.Mutex
	var devices []Device
	seen := make(map[string]bool)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.adapter.StopScan()
		case <-done:
		}
	}()

	err := a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if filter && !result.HasServiceUUID(uuid) {
			return
		}
		addr := result.Address.String()
		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true
		devices = append(devices, Device{
			Name:    result.LocalName(),
			Address: addr,
			RSSI:    int(result.RSSI),
		})
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	return devices, nil
}

func (a *TinyGoAdapter) NewClient() (Client, error) {
	if err := a.Enable(); err != nil {
		return nil, err
	}
	return &tinygoClient{owner: a}, nil
}

func (a *TinyGoAdapter) register(address string, c *tinygoClient) {
	a.mu.Lock()
	a.clients[NormalizeAddress(address)] = c
	a.mu.Unlock()
}

func (a *TinyGoAdapter) unregister(address string, c *tinygoClient) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := NormalizeAddress(address)
	if a.clients[id] == c {
		delete(a.clients, id)
	}
}

type tinygoClient struct {
	owner *TinyGoAdapter

	mu        sync.Mutex
	address   string
	device    *bluetooth.Device
	connected bool
	observer  Observer
}

func (c *tinygoClient) SetObserver(o Observer) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

func (c *tinygoClient) Connect(ctx context.Context, address string) error {
	var addr bluetooth.Address
	addr.Set(address)

	// tinygo/bluetooth's Connect blocks internally with its own timeout.
	// We wrap it to also respect ctx cancellation.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := c.owner.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		// The underlying Connect cannot be cancelled; drop the link if it
		// comes up after we gave up on it.
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.device.Disconnect()
			}
		}()
		return fmt.Errorf("ble: connect to %s: %w", address, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return fmt.Errorf("ble: connect to %s: %w", address, result.err)
		}
		c.mu.Lock()
		c.address = address
		c.device = &result.device
		c.connected = true
		obs := c.observer
		c.mu.Unlock()

		c.owner.register(address, c)
		if obs != nil {
			obs.OnConnect()
		}
		return nil
	}
}

func (c *tinygoClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *tinygoClient) Disconnect() error {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()
	if device == nil {
		return nil
	}
	err := device.Disconnect()
	c.handleDisconnect()
	if err != nil {
		return fmt.Errorf("ble: disconnect: %w", err)
	}
	return nil
}

// handleDisconnect marks the link down and notifies the observer once per
// connection, whichever of Disconnect and the adapter handler runs first.
func (c *tinygoClient) handleDisconnect() {
	c.mu.Lock()
	was := c.connected
	c.connected = false
	obs := c.observer
	c.mu.Unlock()
	if was && obs != nil {
		obs.OnDisconnect()
	}
}

func (c *tinygoClient) Service(uuid string) (Service, error) {
	c.mu.Lock()
	device := c.device
	connected := c.connected
	c.mu.Unlock()
	if device == nil || !connected {
		return nil, ErrNotConnected
	}

	svcUUID, err := bluetooth.ParseUUID(uuid)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}
	svcs, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover service %s: %w", uuid, err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("ble: service %s: %w", uuid, ErrNotFound)
	}
	return &tinygoService{svc: svcs[0], uuid: NormalizeUUID(uuid)}, nil
}

func (c *tinygoClient) Close() error {
	var err error
	if c.IsConnected() {
		err = c.Disconnect()
	}
	c.mu.Lock()
	address := c.address
	c.device = nil
	c.observer = nil
	c.mu.Unlock()
	if address != "" {
		c.owner.unregister(address, c)
	}
	return err
}

type tinygoService struct {
	svc  bluetooth.DeviceService
	uuid string
}

func (s *tinygoService) UUID() string { return s.uuid }

func (s *tinygoService) Characteristic(uuid string) (Characteristic, error) {
	charUUID, err := bluetooth.ParseUUID(uuid)
	if err != nil {
		return nil, fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}
	chars, err := s.svc.DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristic %s: %w", uuid, err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("ble: characteristic %s: %w", uuid, ErrNotFound)
	}
	return &tinygoCharacteristic{char: chars[0], uuid: NormalizeUUID(uuid)}, nil
}

type tinygoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
	uuid string
}

func (c *tinygoCharacteristic) UUID() string { return c.uuid }

// CanNotify always reports true: tinygo has no portable property query, so
// a characteristic without notify support surfaces as a Subscribe error.
func (c *tinygoCharacteristic) CanNotify() bool { return true }

func (c *tinygoCharacteristic) Subscribe(cb func([]byte)) error {
	return c.char.EnableNotifications(func(buf []byte) {
		cb(buf)
	})
}

func (c *tinygoCharacteristic) Write(data []byte, withResponse bool) error {
	if withResponse {
		return c.writeWithResponse(data)
	}
	_, err := c.char.WriteWithoutResponse(data)
	return err
}
