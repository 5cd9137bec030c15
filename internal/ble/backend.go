package ble

import "fmt"

// Backend names accepted by NewAdapter.
const (
	BackendTinyGo = "tinygo"
	BackendGoBLE  = "goble"
)

// NewAdapter returns the adapter for the named backend. An empty name
// selects tinygo.
func NewAdapter(backend string) (Adapter, error) {
	switch backend {
	case "", BackendTinyGo:
		return NewTinyGoAdapter(), nil
	case BackendGoBLE:
		a, err := NewGoBLEAdapter()
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("ble: unknown backend %q", backend)
	}
}
