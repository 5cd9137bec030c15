//go:build !linux

package ble

import (
	"context"
	"errors"
)

var errGoBLEUnsupported = errors.New("ble: the goble backend is only available on linux")

// GoBLEAdapter is unavailable on this platform.
type GoBLEAdapter struct{}

// NewGoBLEAdapter always fails on non-linux platforms.
func NewGoBLEAdapter() (*GoBLEAdapter, error) {
	return nil, errGoBLEUnsupported
}

var _ Adapter = (*GoBLEAdapter)(nil)

func (a *GoBLEAdapter) Enable() error { return errGoBLEUnsupported }

func (a *GoBLEAdapter) Scan(context.Context, string) ([]Device, error) {
	return nil, errGoBLEUnsupported
}

func (a *GoBLEAdapter) NewClient() (Client, error) { return nil, errGoBLEUnsupported }
