package f503i

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteString(t *testing.T) {
	tests := []struct {
		note Note
		want string
	}{
		{NoteOff, "OFF"},
		{NoteA0, "A0"},
		{2, "A#0"},
		{NoteC4, "C4"},
		{NoteA4, "A4"},
		{NoteC8, "C8"},
		{NoteGS9, "G#9"},
		{109, "Note(109)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.note.String())
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in   string
		want Note
	}{
		{"A0", NoteA0},
		{"C4", NoteC4},
		{"c4", NoteC4},
		{"C#4", NoteC4 + 1},
		{"CS4", NoteC4 + 1},
		{"Db4", NoteC4 + 1},
		{"A4", NoteA4},
		{"G#9", NoteGS9},
		{"off", NoteOff},
		{"R", NoteOff},
		{"49", NoteA4},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNote(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNoteRoundTrip(t *testing.T) {
	for n := NoteA0; n <= NoteMax; n++ {
		got, err := ParseNote(n.String())
		require.NoError(t, err, "note %d", n)
		assert.Equal(t, n, got)
	}
}

func TestParseNoteErrors(t *testing.T) {
	for _, in := range []string{"", "H4", "C", "G#-1", "A9", "C10", "200", "Cx4"} {
		_, err := ParseNote(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNoteFrequency(t *testing.T) {
	assert.InDelta(t, 440.0, NoteA4.Frequency(), 1e-9)
	assert.InDelta(t, 27.5, NoteA0.Frequency(), 1e-9)
	assert.InDelta(t, 261.6256, NoteC4.Frequency(), 1e-3)
	assert.Zero(t, NoteOff.Frequency())
	assert.Zero(t, Note(200).Frequency())
}
