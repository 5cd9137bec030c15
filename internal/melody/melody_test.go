package melody

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/f503i/internal/f503i"
)

type fakeBuzzer struct {
	mu    sync.Mutex
	calls []f503i.Note // NoteOff for TurnOffBuzzer
}

func (b *fakeBuzzer) TurnOnBuzzer(n f503i.Note) {
	b.mu.Lock()
	b.calls = append(b.calls, n)
	b.mu.Unlock()
}

func (b *fakeBuzzer) TurnOffBuzzer() { b.TurnOnBuzzer(f503i.NoteOff) }

func (b *fakeBuzzer) Calls() []f503i.Note {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]f503i.Note(nil), b.calls...)
}

func TestParse(t *testing.T) {
	m, err := Parse("C4:200 E4:150, R:100 G4")
	require.NoError(t, err)

	want := Melody{
		{f503i.NoteC4, 200 * time.Millisecond},
		{f503i.NoteC4 + 4, 150 * time.Millisecond},
		{f503i.NoteOff, 100 * time.Millisecond},
		{f503i.NoteC4 + 7, DefaultStep},
	}
	assert.Equal(t, want, m)
	assert.Equal(t, 450*time.Millisecond+DefaultStep, m.Duration())
	assert.Equal(t, "C4:200 E4:150 R:100 G4:250", m.String())
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"", "   ", "H4:100", "C4:", "C4:abc", "C4:-5", "C4:0",
		"C4:60001", "C4:9223372036854775", "C4:99999999999999999999",
	} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseLongestStep(t *testing.T) {
	m, err := Parse("A4:60000")
	require.NoError(t, err)
	assert.Equal(t, MaxStep, m[0].Duration)
	assert.Positive(t, m.Duration())
}

func TestPlay(t *testing.T) {
	m := Melody{
		{f503i.NoteA4, 5 * time.Millisecond},
		{f503i.NoteOff, 5 * time.Millisecond},
		{f503i.NoteC4, 5 * time.Millisecond},
	}
	b := &fakeBuzzer{}

	start := time.Now()
	require.NoError(t, Play(context.Background(), b, m))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	assert.Equal(t, []f503i.Note{f503i.NoteA4, f503i.NoteOff, f503i.NoteC4, f503i.NoteOff}, b.Calls())
}

func TestPlayCancelled(t *testing.T) {
	m := Melody{{f503i.NoteA4, time.Hour}, {f503i.NoteC4, time.Hour}}
	b := &fakeBuzzer{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Play(ctx, b, m)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []f503i.Note{f503i.NoteA4, f503i.NoteOff}, b.Calls(), "buzzer must be left off")
}

func TestRenderWAV(t *testing.T) {
	const rate = 8000
	m := Melody{
		{f503i.NoteA4, 100 * time.Millisecond},
		{f503i.NoteOff, 50 * time.Millisecond},
	}

	path := filepath.Join(t.TempDir(), "m.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, RenderWAV(f, m, rate))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, rate, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	require.Len(t, buf.Data, 1200)

	// 440 Hz at 8 kHz: the first half period is high, the next is low.
	assert.Positive(t, buf.Data[0])
	assert.Negative(t, buf.Data[12])
	for _, s := range buf.Data[800:] {
		require.Zero(t, s, "rest must be silent")
	}
}

func TestRenderWAVDefaultRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, RenderWAV(f, Melody{{f503i.NoteC4, 10 * time.Millisecond}}, 0))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleRate, buf.Format.SampleRate)
	assert.Len(t, buf.Data, SampleCount(10*time.Millisecond, DefaultSampleRate))
}

func TestSampleCount(t *testing.T) {
	assert.Equal(t, 8000, SampleCount(time.Second, 8000))
	assert.Equal(t, 220, SampleCount(10*time.Millisecond, 22050))
	assert.Zero(t, SampleCount(0, 8000))
}
