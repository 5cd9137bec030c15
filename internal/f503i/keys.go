package f503i

import "strings"

// Key identifies one of the twelve keypad keys.
type Key int

const (
	Key0 Key = iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyAsterisk // *
	KeySharp    // #

	KeyCount = 12
)

// KeyState is the keypad bitmap: bit i set means key i is pressed.
type KeyState uint16

// KeyMaskAll covers the twelve key bits.
const KeyMaskAll KeyState = 0x0FFF

// KeyMaskTable maps a Key to its bit in KeyState.
var KeyMaskTable = [KeyCount]KeyState{
	0x0001, 0x0002, 0x0004, 0x0008,
	0x0010, 0x0020, 0x0040, 0x0080,
	0x0100, 0x0200, 0x0400, 0x0800,
}

// KeyCharTable maps a Key to the character printed on it.
var KeyCharTable = [KeyCount]rune{
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '*', '#',
}

func (k Key) valid() bool {
	return k >= 0 && k < KeyCount
}

// IsKeyOn reports whether key is pressed in keys. Out-of-range keys are
// never on.
func IsKeyOn(keys KeyState, key Key) bool {
	if !key.valid() {
		return false
	}
	return keys&KeyMaskTable[key] != 0
}

// KeyIndexToChar returns the character printed on key, or 0 when key is
// out of range.
func KeyIndexToChar(key Key) rune {
	if !key.valid() {
		return 0
	}
	return KeyCharTable[key]
}

// KeyFromChar is the inverse of KeyIndexToChar.
func KeyFromChar(r rune) (Key, bool) {
	for i, c := range KeyCharTable {
		if c == r {
			return Key(i), true
		}
	}
	return 0, false
}

func (k Key) String() string {
	if !k.valid() {
		return "Key(?)"
	}
	return string(KeyCharTable[k])
}

// On reports whether key is pressed.
func (s KeyState) On(key Key) bool {
	return IsKeyOn(s, key)
}

// Keys lists the pressed keys in index order.
func (s KeyState) Keys() []Key {
	var keys []Key
	for i := Key0; i < KeyCount; i++ {
		if s.On(i) {
			keys = append(keys, i)
		}
	}
	return keys
}

// Pressed returns the keys that are down in s but were up in prev.
func (s KeyState) Pressed(prev KeyState) []Key {
	return (s &^ prev).Keys()
}

// Released returns the keys that were down in prev but are up in s.
func (s KeyState) Released(prev KeyState) []Key {
	return (prev &^ s).Keys()
}

// String renders the pressed keys, e.g. "1 5 #", or "-" when none are.
func (s KeyState) String() string {
	keys := s.Keys()
	if len(keys) == 0 {
		return "-"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " ")
}
