package f503i

import "sync/atomic"

// linkObserver records connect/disconnect transitions reported by the
// transport. The flag is read without the device lock.
type linkObserver struct {
	connected atomic.Bool
	// wake nudges the connect loop out of its Ready poll on disconnect.
	wake chan struct{}
}

func newLinkObserver() *linkObserver {
	return &linkObserver{wake: make(chan struct{}, 1)}
}

func (o *linkObserver) OnConnect() {
	o.connected.Store(true)
}

func (o *linkObserver) OnDisconnect() {
	o.connected.Store(false)
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *linkObserver) isConnected() bool {
	return o.connected.Load()
}
