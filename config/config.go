/*
Package config loads server settings.

PRECEDENCE (lowest to highest):
  1. Defaults from Default()
  2. YAML file passed with --config
  3. Command-line flags (applied by cmd/server)

EXAMPLE FILE:
  http:
    addr: ":8080"
    read_timeout: 15s
    allowed_origins: ["http://localhost:5173"]
  database:
    driver: sqlite
    path: ./settlement.db
  log:
    level: debug
    file: ./logs/settlement.log
  settlement:
    schedule_interval: 24h
    workers: 4
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/logging"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        logging.Config   `yaml:"log"`
	Settlement SettlementConfig `yaml:"settlement"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type SettlementConfig struct {
	// ScheduleInterval of 0 disables periodic generation.
	ScheduleInterval time.Duration `yaml:"schedule_interval"`
	Workers          int           `yaml:"workers"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "settlement.db",
		},
		Log: logging.DefaultConfig(),
		Settlement: SettlementConfig{
			Workers: 1,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at startup.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return &ledger.ValidationError{Field: "database.path", Value: "", Reason: "required for the sqlite driver"}
		}
	case DriverMemory:
	default:
		return &ledger.ValidationError{
			Field:    "database.driver",
			Value:    c.Database.Driver,
			Accepted: []string{DriverSQLite, DriverMemory},
		}
	}
	if c.Settlement.Workers < 1 {
		return &ledger.ValidationError{Field: "settlement.workers", Value: fmt.Sprint(c.Settlement.Workers), Reason: "must be at least 1"}
	}
	if c.Settlement.ScheduleInterval < 0 {
		return &ledger.ValidationError{Field: "settlement.schedule_interval", Value: c.Settlement.ScheduleInterval.String(), Reason: "must not be negative"}
	}
	if c.HTTP.Addr == "" {
		return &ledger.ValidationError{Field: "http.addr", Value: "", Reason: "required"}
	}
	return nil
}
