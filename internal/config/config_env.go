package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envConfig lists the PARKING_* environment variables. Durations stay
// strings so they share parsing and error messages with the file layer.
type envConfig struct {
	SerialPort       string `env:"SERIAL_PORT"`
	BaudRate         int    `env:"BAUD_RATE"`
	ReadTimeout      string `env:"READ_TIMEOUT"`
	PollInterval     string `env:"POLL_INTERVAL"`
	MinStateDuration string `env:"MIN_STATE_DURATION"`
	DataDir          string `env:"DATA_DIR"`
	DBPath           string `env:"DB_PATH"`
	Broker           string `env:"BROKER"`
	ClientID         string `env:"CLIENT_ID"`
	HTTPAddr         string `env:"HTTP_ADDR"`
	Heartbeat        string `env:"HEARTBEAT"`
	LogLevel         string `env:"LOG_LEVEL"`
}

// EnvPrefix is prepended to every variable name in envConfig.
const EnvPrefix = "PARKING_"

// ApplyEnv applies PARKING_* environment variables to cfg, skipping flags
// in changed. It returns an error if any variable has an invalid format.
func ApplyEnv(cfg *Config, changed map[string]bool) error {
	ec, err := env.ParseAsWithOptions[envConfig](env.Options{Prefix: EnvPrefix})
	if err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	return ApplyFile(cfg, FileConfig(ec), changed)
}
