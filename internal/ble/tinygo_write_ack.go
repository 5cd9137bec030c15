//go:build darwin || windows

package ble

// tinygoAckWrites reports whether writes requested with response wait for
// the peripheral's acknowledgement.
const tinygoAckWrites = true

func (c *tinygoCharacteristic) writeWithResponse(data []byte) error {
	_, err := c.char.Write(data)
	return err
}
