package bridge

// Event types sent to clients.
const (
	EventKeys  = "keys"
	EventLight = "light"
	EventState = "state"
	EventError = "error"
)

// Event is the envelope of every server-to-client message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type KeysPayload struct {
	Mask     uint16   `json:"mask"`
	Keys     []string `json:"keys"`
	Pressed  []string `json:"pressed,omitempty"`
	Released []string `json:"released,omitempty"`
}

type LightPayload struct {
	Level uint16 `json:"level"`
}

type StatePayload struct {
	State     string   `json:"state"`
	Connected bool     `json:"connected"`
	Address   string   `json:"address"`
	Keys      []string `json:"keys"`
	Light     uint16   `json:"light"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// Command types accepted from clients.
const (
	CommandLED       = "led"
	CommandBuzzer    = "buzzer"
	CommandBuzzerOff = "buzzer_off"
	CommandPlay      = "play"
)

// Command is a client-to-server message. Which fields apply depends on
// Type: led uses LED and Brightness, buzzer uses Note, play uses Melody.
type Command struct {
	Type       string `json:"type"`
	LED        string `json:"led,omitempty"`
	Brightness *int   `json:"brightness,omitempty"`
	Note       string `json:"note,omitempty"`
	Melody     string `json:"melody,omitempty"`
}
