package f503i

// Both notifications are exactly two bytes, low byte first.
const notifyPayloadLen = 2

// decodeKeys converts a key notification into a KeyState. The device
// reports released keys as 1 bits, so the payload is inverted and masked
// to the twelve key bits.
func decodeKeys(data []byte) (KeyState, bool) {
	if len(data) != notifyPayloadLen {
		return 0, false
	}
	raw := uint16(data[1])<<8 | uint16(data[0])
	return KeyState(^raw) & KeyMaskAll, true
}

// decodeLight converts a light-sensor notification into its raw reading.
func decodeLight(data []byte) (uint16, bool) {
	if len(data) != notifyPayloadLen {
		return 0, false
	}
	return uint16(data[1])<<8 | uint16(data[0]), true
}

// handleKeyNotify is installed on the key characteristic. Malformed
// payloads leave the cached value untouched.
func (d *Device) handleKeyNotify(data []byte) {
	keys, ok := decodeKeys(data)
	if !ok {
		d.log.WithField("len", len(data)).Debug("ignoring malformed key notification")
		return
	}
	d.mu.Lock()
	d.keys = keys
	d.mu.Unlock()

	if d.opts.OnKeys != nil {
		d.opts.OnKeys(keys)
	}
}

// handleLightNotify is installed on the light-sensor characteristic.
func (d *Device) handleLightNotify(data []byte) {
	level, ok := decodeLight(data)
	if !ok {
		d.log.WithField("len", len(data)).Debug("ignoring malformed light sensor notification")
		return
	}
	d.mu.Lock()
	d.light = level
	d.mu.Unlock()

	if d.opts.OnLight != nil {
		d.opts.OnLight(level)
	}
}
