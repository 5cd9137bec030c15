package f503i

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKeyOnMatchesBits(t *testing.T) {
	masks := []KeyState{0x000, 0x001, 0x800, 0xA5A, 0x5A5, 0xFFF}
	for _, mask := range masks {
		for k := Key0; k < KeyCount; k++ {
			want := mask&(1<<uint(k)) != 0
			assert.Equal(t, want, IsKeyOn(mask, k), "mask %#03x key %d", uint16(mask), k)
		}
	}
}

func TestIsKeyOnOutOfRange(t *testing.T) {
	all := KeyState(0xFFFF)
	assert.False(t, IsKeyOn(all, 12))
	assert.False(t, IsKeyOn(all, 15))
	assert.False(t, IsKeyOn(all, 100))
	assert.False(t, IsKeyOn(all, -1))
}

func TestKeyIndexToChar(t *testing.T) {
	want := "0123456789*#"
	for i, r := range want {
		assert.Equal(t, r, KeyIndexToChar(Key(i)))
	}
	assert.Equal(t, rune(0), KeyIndexToChar(KeyCount))
	assert.Equal(t, rune(0), KeyIndexToChar(-1))
}

func TestKeyFromChar(t *testing.T) {
	k, ok := KeyFromChar('#')
	assert.True(t, ok)
	assert.Equal(t, KeySharp, k)

	k, ok = KeyFromChar('7')
	assert.True(t, ok)
	assert.Equal(t, Key7, k)

	_, ok = KeyFromChar('A')
	assert.False(t, ok)
}

func TestKeyStatePressedReleased(t *testing.T) {
	prev := KeyState(KeyMaskTable[Key1] | KeyMaskTable[Key2])
	cur := KeyState(KeyMaskTable[Key2] | KeyMaskTable[KeySharp])

	assert.Equal(t, []Key{KeySharp}, cur.Pressed(prev))
	assert.Equal(t, []Key{Key1}, cur.Released(prev))
	assert.Empty(t, cur.Pressed(cur))
}

func TestKeyStateString(t *testing.T) {
	assert.Equal(t, "-", KeyState(0).String())
	assert.Equal(t, "1 5 *", KeyState(KeyMaskTable[Key1]|KeyMaskTable[Key5]|KeyMaskTable[KeyAsterisk]).String())
}
