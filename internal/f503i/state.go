package f503i

// ConnState is the connect loop's current phase.
type ConnState int

const (
	StateIdle ConnState = iota // no session: before Begin or after End
	StateDisconnected
	StateConnecting
	StateDiscovering
	StateReady
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateDiscovering:
		return "discovering"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}
