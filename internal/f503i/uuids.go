// Package f503i drives an F503i handset over BLE: a 12-key keypad, three
// dimmable LEDs, a buzzer and an ambient light sensor exposed as GATT
// characteristics of a single service.
//
// A Device keeps a background goroutine that connects, discovers the
// characteristics, subscribes to key and light-sensor notifications and
// reconnects whenever the link drops. Callers read cached state and issue
// fire-and-forget writes; nothing on the caller's side waits for the link.
package f503i

// F503i GATT UUIDs
const (
	ServiceUUID = "f7fce510-7a0b-4b89-a675-a79137223e2c"

	KeyCharUUID = "f7fce531-7a0b-4b89-a675-a79137223e2c"

	LEDLeftCharUUID   = "f7fce517-7a0b-4b89-a675-a79137223e2c"
	LEDCenterCharUUID = "f7fce518-7a0b-4b89-a675-a79137223e2c"
	LEDRightCharUUID  = "f7fce51b-7a0b-4b89-a675-a79137223e2c"

	BuzzerCharUUID = "f7fce521-7a0b-4b89-a675-a79137223e2c"

	LightSensorCharUUID       = "f7fce532-7a0b-4b89-a675-a79137223e2c"
	LightSensorConfigCharUUID = "f7fce533-7a0b-4b89-a675-a79137223e2c"
)

// LED identifies one of the three LEDs.
type LED int

const (
	LEDLeft LED = iota
	LEDCenter
	LEDRight

	LEDCount = 3
)

var ledCharUUIDs = [LEDCount]string{LEDLeftCharUUID, LEDCenterCharUUID, LEDRightCharUUID}

func (l LED) valid() bool {
	return l >= 0 && l < LEDCount
}

func (l LED) String() string {
	switch l {
	case LEDLeft:
		return "left"
	case LEDCenter:
		return "center"
	case LEDRight:
		return "right"
	default:
		return "LED(?)"
	}
}

// ParseLED accepts "left", "center", "right" or an index 0..2.
func ParseLED(s string) (LED, bool) {
	switch s {
	case "left", "l", "0":
		return LEDLeft, true
	case "center", "centre", "c", "1":
		return LEDCenter, true
	case "right", "r", "2":
		return LEDRight, true
	}
	return 0, false
}

// Brightness presets.
const (
	BrightnessOff uint8 = 0
	BrightnessMax uint8 = 255
)

// enableNotify is written to the light-sensor config characteristic to
// start light-sensor notifications.
var enableNotify = []byte{1}
