// Package config holds the expander's application settings: which drivers to use,
// how to name ports, how to reach the session manager and how long to wait for it.
// Settings come from an optional TOML file; anything left out gets a default.
// The per-session sound bank setting is not part of this package, see configstore.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// PortsConfig names the ports registered with the audio driver.
type PortsConfig struct {
	MidiIn   string `toml:"midi_in" validate:"required"`
	OutLeft  string `toml:"out_left" validate:"required"`
	OutRight string `toml:"out_right" validate:"required,nefield=OutLeft"`
}

// SessionConfig controls the session manager handshake.
type SessionConfig struct {
	// URLEnv names the environment variable holding the manager URL.
	URLEnv string `toml:"url_env" validate:"required"`
	// ListenHost is the host of the local OSC endpoint, empty for all interfaces.
	ListenHost string `toml:"listen_host"`
	// ListenPorts are the candidate UDP ports tried in order. 0 picks a free port.
	ListenPorts []int `toml:"listen_ports" validate:"min=1,max=16,dive,min=0,max=65535"`
	// OpenTimeout bounds the wait for the manager's open request.
	OpenTimeout string `toml:"open_timeout" validate:"required"`
	// Capabilities is sent with the announce request.
	Capabilities string `toml:"capabilities"`
}

// GetOpenTimeout returns the open timeout as a time.Duration.
func (s *SessionConfig) GetOpenTimeout() time.Duration {
	d, err := time.ParseDuration(s.OpenTimeout)
	if err != nil {
		return DefaultOpenTimeout
	}
	return d
}

// StandaloneConfig is the identity used when no session manager is present.
type StandaloneConfig struct {
	ClientID    string `toml:"client_id" validate:"required"`
	DisplayName string `toml:"display_name" validate:"required"`
	// AppDir is relative to the home directory.
	AppDir string `toml:"app_dir" validate:"required"`
}

// MonitorConfig controls logging of incoming MIDI.
type MonitorConfig struct {
	Enabled  bool   `toml:"enabled"`
	Capacity int    `toml:"capacity" validate:"min=16,max=65536"`
	Interval string `toml:"interval" validate:"required"`
}

// GetInterval returns the drain interval of the monitor.
func (m *MonitorConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(m.Interval)
	if err != nil {
		return DefaultMonitorInterval
	}
	return d
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `toml:"pretty"`
}

// Settings holds all configuration parameters of the expander.
type Settings struct {
	FormatVersion string `toml:"format_version"`

	// ClientName is both the audio client name and the announced application name.
	ClientName string `toml:"client_name" validate:"required,max=64"`
	// Driver and Engine select registered backends by name.
	Driver string `toml:"driver" validate:"required"`
	Engine string `toml:"engine" validate:"required"`

	Ports      PortsConfig      `toml:"ports"`
	Session    SessionConfig    `toml:"session"`
	Standalone StandaloneConfig `toml:"standalone"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Log        LogConfig        `toml:"log"`
}

// SettingsFormatVersion is the current version of the settings file format.
const SettingsFormatVersion = "0.1.0"

const (
	DefaultClientName      = "5FX-Expander"
	DefaultOpenTimeout     = 10 * time.Second
	DefaultMonitorInterval = 50 * time.Millisecond
)

// Default returns the settings used when no file is given.
func Default() *Settings {
	return &Settings{
		FormatVersion: SettingsFormatVersion,
		ClientName:    DefaultClientName,
		Driver:        "jack",
		Engine:        "liquidsfz",
		Ports: PortsConfig{
			MidiIn:   "midi_in",
			OutLeft:  "out_1",
			OutRight: "out_2",
		},
		Session: SessionConfig{
			URLEnv:       "NSM_URL",
			ListenPorts:  []int{0},
			OpenTimeout:  DefaultOpenTimeout.String(),
			Capabilities: ":progress:",
		},
		Standalone: StandaloneConfig{
			ClientID:    DefaultClientName,
			DisplayName: "5FX Expander",
			AppDir:      ".5FX",
		},
		Monitor: MonitorConfig{
			Capacity: 256,
			Interval: DefaultMonitorInterval.String(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the settings. Zero values must have been replaced by defaults
// before calling it, which Load does.
func Validate(s *Settings) error {
	if s.FormatVersion != SettingsFormatVersion {
		return fmt.Errorf("unsupported settings format version: %q", s.FormatVersion)
	}
	if err := validate.Struct(s); err != nil {
		return err
	}
	if _, err := time.ParseDuration(s.Session.OpenTimeout); err != nil {
		return fmt.Errorf("invalid session.open_timeout: %v", err)
	}
	if s.Session.GetOpenTimeout() <= 0 {
		return fmt.Errorf("session.open_timeout must be positive")
	}
	if _, err := time.ParseDuration(s.Monitor.Interval); err != nil {
		return fmt.Errorf("invalid monitor.interval: %v", err)
	}
	return nil
}

// Load reads settings from filename on top of the defaults. An empty filename
// returns the defaults.
func Load(filename string) (*Settings, error) {
	s := Default()
	if filename == "" {
		return s, nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading settings file: %v", err)
	}
	if _, err := toml.Decode(string(content), s); err != nil {
		return nil, fmt.Errorf("error parsing settings file: %v", err)
	}
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %v", err)
	}
	return s, nil
}
