// Package ble abstracts the BLE central stack used to talk to an F503i
// handset: connecting by address, resolving a service and its
// characteristics by UUID, and reading notifications from / writing
// payloads to those characteristics.
package ble

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned (wrapped) when a service or characteristic
	// lookup finds nothing.
	ErrNotFound = errors.New("ble: not found")
	// ErrNotConnected is returned by operations that need a live link.
	ErrNotConnected = errors.New("ble: not connected")
)

// Characteristic represents a discovered remote GATT characteristic.
type Characteristic interface {
	// UUID returns the characteristic UUID in lowercase dashed form.
	UUID() string
	// CanNotify reports whether the characteristic supports notifications.
	CanNotify() bool
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
	// Write sends data to the characteristic, waiting for the peer's
	// acknowledgement when withResponse is set.
	Write(data []byte, withResponse bool) error
}

// Service represents a discovered remote GATT service.
type Service interface {
	UUID() string
	// Characteristic resolves a characteristic of this service by UUID.
	Characteristic(uuid string) (Characteristic, error)
}

// Observer receives link lifecycle transitions reported by the transport.
// Callbacks may run on a transport-owned goroutine.
type Observer interface {
	OnConnect()
	OnDisconnect()
}

// Client is a single central-side link to one peripheral.
type Client interface {
	// Connect blocks until the link is up, the attempt fails or ctx is done.
	Connect(ctx context.Context, address string) error
	IsConnected() bool
	Disconnect() error
	// Service resolves a primary service by UUID on the connected peer.
	Service(uuid string) (Service, error)
	// SetObserver installs the lifecycle observer. Must be called before Connect.
	SetObserver(o Observer)
	// Close releases the client. The client must not be used afterwards.
	Close() error
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name    string
	Address string
	RSSI    int
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan discovers BLE peripherals advertising the given service UUID.
	// Returns discovered devices until ctx is cancelled or times out.
	Scan(ctx context.Context, serviceUUID string) ([]Device, error)
	// NewClient allocates a client bound to this adapter.
	NewClient() (Client, error)
}

// NormalizeAddress lowercases an address so MAC strings from different
// stacks ("AA:BB:..." vs "aa:bb:...") compare equal.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// NormalizeUUID lowercases a UUID string.
func NormalizeUUID(uuid string) string {
	return strings.ToLower(strings.TrimSpace(uuid))
}
