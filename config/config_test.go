package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settlement.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeFile(t, `
http:
  addr: ":9090"
  read_timeout: 5s
database:
  driver: memory
log:
  level: debug
  json: true
settlement:
  schedule_interval: 1h30m
  workers: 4
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTP.WriteTimeout, "unset keys keep their default")
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 90*time.Minute, cfg.Settlement.ScheduleInterval)
	assert.Equal(t, 4, cfg.Settlement.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "http: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero workers", func(c *Config) { c.Settlement.Workers = 0 }, "settlement.workers"},
		{"negative interval", func(c *Config) { c.Settlement.ScheduleInterval = -time.Second }, "settlement.schedule_interval"},
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()

			var verr *ledger.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	cfg := Default()
	cfg.Database = DatabaseConfig{Driver: DriverMemory}
	assert.NoError(t, cfg.Validate(), "memory driver needs no path")
}
