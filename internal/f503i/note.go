package f503i

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Note is the tone index written to the buzzer. 0 is silence; 1..108 run
// chromatically from A0 to G#9.
type Note uint8

const (
	NoteOff Note = 0
	NoteA0  Note = 1
	NoteC4  Note = 40
	NoteA4  Note = 49
	NoteC8  Note = 88
	NoteGS9 Note = 108

	// NoteMax is the highest tone the buzzer accepts.
	NoteMax = NoteGS9
)

// MIDI number of NoteA0 minus one.
const noteMIDIOffset = 20

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Valid reports whether n is NoteOff or a tone the buzzer can play.
func (n Note) Valid() bool {
	return n <= NoteMax
}

// MIDI returns the MIDI note number, or 0 for NoteOff.
func (n Note) MIDI() int {
	if n == NoteOff {
		return 0
	}
	return int(n) + noteMIDIOffset
}

// Frequency returns the equal-tempered pitch in Hz (A4 = 440 Hz), or 0 for
// NoteOff and invalid notes.
func (n Note) Frequency() float64 {
	if n == NoteOff || !n.Valid() {
		return 0
	}
	return 440 * math.Pow(2, float64(n.MIDI()-69)/12)
}

func (n Note) String() string {
	switch {
	case n == NoteOff:
		return "OFF"
	case !n.Valid():
		return fmt.Sprintf("Note(%d)", uint8(n))
	}
	midi := n.MIDI()
	return fmt.Sprintf("%s%d", noteNames[midi%12], midi/12-1)
}

// ParseNote parses names such as "C4", "C#4", "CS4", "Db5", "A0" or "OFF".
// A bare number is taken as the raw tone index.
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "OFF", "R", "REST", "-":
		return NoteOff, nil
	}
	if v, err := strconv.ParseUint(s, 10, 8); err == nil {
		n := Note(v)
		if !n.Valid() {
			return 0, fmt.Errorf("f503i: note index %d out of range", v)
		}
		return n, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("f503i: invalid note %q", s)
	}

	letter := strings.ToUpper(s[:1])
	semitone := -1
	for i, name := range noteNames {
		if name == letter {
			semitone = i
			break
		}
	}
	if semitone < 0 {
		return 0, fmt.Errorf("f503i: invalid note %q", s)
	}

	rest := s[1:]
	switch rest[0] {
	case '#', 's', 'S':
		semitone++
		rest = rest[1:]
	case 'b':
		semitone--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("f503i: invalid octave in note %q", s)
	}

	midi := (octave+1)*12 + semitone
	idx := midi - noteMIDIOffset
	if idx < int(NoteA0) || idx > int(NoteMax) {
		return 0, fmt.Errorf("f503i: note %q out of buzzer range A0..G#9", s)
	}
	return Note(idx), nil
}
