package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/chaz8081/f503i/internal/ble"
	"github.com/chaz8081/f503i/internal/f503i"
)

// Config holds all application configuration.
type Config struct {
	Device   DeviceConfig `yaml:"device"`
	Keypad   KeypadConfig `yaml:"keypad"`
	Bridge   BridgeConfig `yaml:"bridge"`
	Pager    PagerConfig  `yaml:"pager"`
	LogLevel string       `yaml:"log_level"`
	LogFile  string       `yaml:"log_file,omitempty"` // empty logs to stderr
}

// DeviceConfig selects the handset and the BLE transport.
type DeviceConfig struct {
	Address       string        `yaml:"address"`
	Backend       string        `yaml:"backend"` // "tinygo" or "goble"
	RetryInterval time.Duration `yaml:"retry_interval"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// KeypadConfig holds keystroke injection settings.
type KeypadConfig struct {
	Enabled bool   `yaml:"enabled"`
	Method  string `yaml:"method"` // "type" or "tap"
	// Keys maps a handset key ("0".."9", "*", "#") to a host key name,
	// e.g. "#": "enter".
	Keys map[string]string `yaml:"keys,omitempty"`
}

// BridgeConfig holds the websocket bridge settings.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// PagerConfig holds the host hotkey that rings the handset.
type PagerConfig struct {
	Enabled bool     `yaml:"enabled"`
	Keys    []string `yaml:"keys"`
	Mode    string   `yaml:"mode"` // "hold" or "toggle"
	Note    string   `yaml:"note"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "f503i")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Backend:       ble.BackendTinyGo,
			RetryInterval: time.Second,
			PollInterval:  time.Second,
		},
		Keypad: KeypadConfig{
			Enabled: true,
			Method:  "type",
		},
		Bridge: BridgeConfig{
			Listen: "127.0.0.1:8503",
		},
		Pager: PagerConfig{
			Keys: []string{"ctrl", "shift", "p"},
			Mode: "hold",
			Note: "A5",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in log_file is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.LogFile = expandTilde(cfg.LogFile)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Device.Backend {
	case ble.BackendTinyGo, ble.BackendGoBLE:
	default:
		return fmt.Errorf("device.backend must be %q or %q, got %q", ble.BackendTinyGo, ble.BackendGoBLE, c.Device.Backend)
	}

	if c.Device.RetryInterval < 0 {
		return fmt.Errorf("device.retry_interval must not be negative")
	}
	if c.Device.PollInterval < 0 {
		return fmt.Errorf("device.poll_interval must not be negative")
	}

	switch c.Keypad.Method {
	case "type", "tap":
	default:
		return fmt.Errorf("keypad.method must be \"type\" or \"tap\", got %q", c.Keypad.Method)
	}
	for k, name := range c.Keypad.Keys {
		if _, ok := keyFromString(k); !ok {
			return fmt.Errorf("keypad.keys: unknown handset key %q", k)
		}
		if name == "" {
			return fmt.Errorf("keypad.keys[%q] must not be empty", k)
		}
	}

	if c.Bridge.Enabled && c.Bridge.Listen == "" {
		return fmt.Errorf("bridge.listen must not be empty when the bridge is enabled")
	}

	if c.Pager.Enabled {
		if len(c.Pager.Keys) == 0 {
			return fmt.Errorf("pager.keys must not be empty")
		}
		switch c.Pager.Mode {
		case "hold", "toggle":
		default:
			return fmt.Errorf("pager.mode must be \"hold\" or \"toggle\", got %q", c.Pager.Mode)
		}
		if _, err := f503i.ParseNote(c.Pager.Note); err != nil {
			return fmt.Errorf("pager.note: %w", err)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// Timing returns the driver timing from the device section. Zero values
// fall back to the driver defaults.
func (c *Config) Timing() f503i.Timing {
	return f503i.Timing{
		RetryInterval: c.Device.RetryInterval,
		PollInterval:  c.Device.PollInterval,
	}
}

// KeyNames returns the keypad overrides keyed by handset key.
func (c *Config) KeyNames() map[f503i.Key]string {
	out := make(map[f503i.Key]string, len(c.Keypad.Keys))
	for k, name := range c.Keypad.Keys {
		if key, ok := keyFromString(k); ok {
			out[key] = name
		}
	}
	return out
}

// PagerNote returns the parsed pager note, or NoteA4 if it does not parse.
func (c *Config) PagerNote() f503i.Note {
	n, err := f503i.ParseNote(c.Pager.Note)
	if err != nil {
		return f503i.NoteA4
	}
	return n
}

func keyFromString(s string) (f503i.Key, bool) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, false
	}
	return f503i.KeyFromChar(r[0])
}

const defaultHeader = `# f503i configuration
#
# device.address: handset address, see "f503i scan"
# device.backend: tinygo | goble (linux only)
# keypad.method:  type (press+release) | tap
# pager.mode:     hold | toggle
# log_level:      debug | info | warn | error
`

// WriteDefault writes the default config to DefaultConfigPath. If a file
// already exists it is left untouched and WriteDefault returns "".
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("checking config file: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// ParseLogLevel maps a config log level to a logrus level. Unknown
// values give InfoLevel.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
