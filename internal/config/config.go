// Package config holds the parking-logger daemon configuration and its
// layering: defaults, then the TOML file, then PARKING_* environment
// variables, then explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sweeney/parking-logger/internal/logic"
	"github.com/sweeney/parking-logger/internal/serial"
)

// Off disables an optional component (broker, db-path, http) when used as its value.
const Off = "off"

// Config holds daemon configuration.
type Config struct {
	SerialPort  string
	BaudRate    int
	ReadTimeout time.Duration

	PollInterval     time.Duration
	MinStateDuration time.Duration

	DataDir  string
	DBPath   string
	Broker   string
	ClientID string
	HTTPAddr string

	Heartbeat time.Duration
	LogLevel  string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		SerialPort:       serial.DefaultPort,
		BaudRate:         serial.DefaultBaudRate,
		ReadTimeout:      serial.DefaultReadTimeout,
		PollInterval:     100 * time.Millisecond,
		MinStateDuration: logic.DefaultMinStateDuration,
		DataDir:          defaultDataDir(),
		Broker:           "",
		ClientID:         "parking-logger",
		HTTPAddr:         ":8080",
		Heartbeat:        15 * time.Minute,
		LogLevel:         "info",
	}
}

func defaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, "ParkingData")
	}
	return "ParkingData"
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.SerialPort == "" {
		return errors.New("serial port is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.BaudRate)
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.MinStateDuration < 0 {
		return errors.New("min state duration must not be negative")
	}
	if c.Heartbeat < 0 {
		return errors.New("heartbeat must not be negative")
	}
	if c.DataDir == "" {
		return errors.New("data dir is required")
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "parking.db")
	}
	if c.ClientID == "" {
		c.ClientID = "parking-logger"
	}
	return nil
}

// Enabled reports whether an optional component value is switched on.
func Enabled(v string) bool {
	return v != "" && v != Off
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}
