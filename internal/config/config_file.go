package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	SerialPort       string `toml:"serial_port"`
	BaudRate         int    `toml:"baud_rate"`
	ReadTimeout      string `toml:"read_timeout"`
	PollInterval     string `toml:"poll_interval"`
	MinStateDuration string `toml:"min_state_duration"`
	DataDir          string `toml:"data_dir"`
	DBPath           string `toml:"db_path"`
	Broker           string `toml:"broker"`
	ClientID         string `toml:"client_id"`
	HTTPAddr         string `toml:"http_addr"`
	Heartbeat        string `toml:"heartbeat"`
	LogLevel         string `toml:"log_level"`
}

// LoadFile reads and parses a TOML config file.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// DefaultPath returns ~/.parking-logger/config.toml, or "" if the home
// directory cannot be determined.
func DefaultPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".parking-logger", "config.toml")
	}
	return ""
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFile applies file values to cfg, skipping flags in changed.
func ApplyFile(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.SerialPort, &cfg.SerialPort)
	s.setInt("baud", fc.BaudRate, &cfg.BaudRate)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("db-path", fc.DBPath, &cfg.DBPath)
	s.setString("broker", fc.Broker, &cfg.Broker)
	s.setString("client-id", fc.ClientID, &cfg.ClientID)
	s.setString("http", fc.HTTPAddr, &cfg.HTTPAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("min-state-duration", fc.MinStateDuration, &cfg.MinStateDuration); err != nil {
		return err
	}
	if err := s.setDuration("heartbeat", fc.Heartbeat, &cfg.Heartbeat); err != nil {
		return err
	}
	return nil
}
