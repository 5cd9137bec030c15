//go:build !darwin && !windows

package ble

// tinygo bluetooth on BlueZ only exposes write-without-response, so a
// write requested with response goes out as a command. Use the goble
// backend where the acknowledgement matters.
const tinygoAckWrites = false

func (c *tinygoCharacteristic) writeWithResponse(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}
