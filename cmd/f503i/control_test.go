package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/f503i/internal/f503i"
)

func TestParseLEDArgs(t *testing.T) {
	leds, level, err := parseLEDArgs("all", "on")
	require.NoError(t, err)
	assert.Equal(t, []f503i.LED{f503i.LEDLeft, f503i.LEDCenter, f503i.LEDRight}, leds)
	assert.Equal(t, uint8(255), level)

	leds, level, err = parseLEDArgs("center", "42")
	require.NoError(t, err)
	assert.Equal(t, []f503i.LED{f503i.LEDCenter}, leds)
	assert.Equal(t, uint8(42), level)

	_, level, err = parseLEDArgs("r", "off")
	require.NoError(t, err)
	assert.Zero(t, level)

	for _, bad := range [][2]string{{"top", "1"}, {"left", "256"}, {"left", "-1"}, {"left", "dim"}} {
		_, _, err := parseLEDArgs(bad[0], bad[1])
		assert.Error(t, err, "args %v", bad)
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, from, err := loadConfig("")
	require.NoError(t, err)
	assert.Empty(t, from)
	assert.Equal(t, "tinygo", cfg.Device.Backend)

	_, _, err = loadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}
