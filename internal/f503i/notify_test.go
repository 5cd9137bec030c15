package f503i

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeKeys(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want KeyState
	}{
		{"all released", []byte{0xFF, 0xFF}, 0x000},
		{"all pressed", []byte{0x00, 0x00}, 0xFFF},
		{"key 0 pressed", []byte{0xFE, 0xFF}, KeyMaskTable[Key0]},
		{"sharp pressed", []byte{0xFF, 0xF7}, KeyMaskTable[KeySharp]},
		{"high nibble ignored", []byte{0xFF, 0x0F}, 0x000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeKeys(tt.data)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)

			// mask = ^((b1<<8)|b0) & 0x0FFF
			raw := uint16(tt.data[1])<<8 | uint16(tt.data[0])
			assert.Equal(t, KeyState(^raw&0x0FFF), got)
		})
	}
}

func TestDecodeKeysRejectsBadLength(t *testing.T) {
	for _, data := range [][]byte{nil, {0x00}, {0x00, 0x00, 0x00}} {
		_, ok := decodeKeys(data)
		assert.False(t, ok, "len %d", len(data))
	}
}

func TestDecodeLight(t *testing.T) {
	got, ok := decodeLight([]byte{0x34, 0x12})
	assert.True(t, ok)
	assert.Equal(t, uint16(0x1234), got)

	got, ok = decodeLight([]byte{0xFF, 0xFF})
	assert.True(t, ok)
	assert.Equal(t, uint16(0xFFFF), got)

	_, ok = decodeLight([]byte{0x34})
	assert.False(t, ok)
	_, ok = decodeLight([]byte{0x34, 0x12, 0x00})
	assert.False(t, ok)
}

func TestNotificationHandlersUpdateCache(t *testing.T) {
	var seenKeys []KeyState
	var seenLight []uint16
	opts := testOptions()
	opts.OnKeys = func(k KeyState) { seenKeys = append(seenKeys, k) }
	opts.OnLight = func(l uint16) { seenLight = append(seenLight, l) }
	d := New(newMockAdapter(), opts)

	d.handleKeyNotify([]byte{0xFB, 0xFF})
	assert.Equal(t, KeyMaskTable[Key2], d.KeyValue())
	assert.True(t, d.IsKeyOn(Key2))
	assert.False(t, d.IsKeyOn(Key3))

	// Malformed payloads leave the cache alone and do not fire hooks.
	d.handleKeyNotify([]byte{0x00})
	d.handleKeyNotify([]byte{0x00, 0x00, 0x00})
	assert.Equal(t, KeyMaskTable[Key2], d.KeyValue())

	d.handleLightNotify([]byte{0x34, 0x12})
	assert.Equal(t, uint16(0x1234), d.LightSensorValue())
	d.handleLightNotify([]byte{0x99})
	assert.Equal(t, uint16(0x1234), d.LightSensorValue())

	assert.Equal(t, []KeyState{KeyMaskTable[Key2]}, seenKeys)
	assert.Equal(t, []uint16{0x1234}, seenLight)
}

func TestCacheDefaultsToZero(t *testing.T) {
	d := New(newMockAdapter(), testOptions())
	assert.Equal(t, KeyState(0), d.KeyValue())
	assert.Equal(t, uint16(0), d.LightSensorValue())
	for k := Key0; k < KeyCount; k++ {
		assert.False(t, d.IsKeyOn(k))
	}
}
