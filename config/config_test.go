package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, [3]float64{10, 0, 10}, cfg.World.SpawnPosition)
	assert.Equal(t, [3]float64{20, 1, 20}, cfg.World.WorldEntityPosition)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:     "port out of range",
			mutate:   func(c *Config) { c.Server.Port = 70000 },
			errorMsg: "port must be between 1 and 65535",
		},
		{
			name:     "zero capacity",
			mutate:   func(c *Config) { c.Server.MaxConnections = 0 },
			errorMsg: "max_connections must be between 1 and 255",
		},
		{
			name:     "capacity wider than slot byte",
			mutate:   func(c *Config) { c.Server.MaxConnections = 256 },
			errorMsg: "max_connections must be between 1 and 255",
		},
		{
			name:     "negative idle timeout",
			mutate:   func(c *Config) { c.Server.IdleTimeout = -1 },
			errorMsg: "idle_timeout cannot be negative",
		},
		{
			name:     "empty http address",
			mutate:   func(c *Config) { c.HTTP.Address = "" },
			errorMsg: "http address cannot be empty",
		},
		{
			name:     "unknown log level",
			mutate:   func(c *Config) { c.Logging.Level = "verbose" },
			errorMsg: "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestDisabledHTTPSkipsValidation(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Enabled = false
	cfg.HTTP.Port = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 4000
  max_connections: 2
  idle_timeout: 30
world:
  spawn_position: [1, 2, 3]
logging:
  level: debug
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.MaxConnections)
	assert.Equal(t, 20, cfg.Server.TickRate, "unset fields keep defaults")
	assert.Equal(t, 30*time.Second, cfg.Server.IdleTimeoutDuration())
	assert.Equal(t, [3]float64{1, 2, 3}, cfg.World.SpawnPosition)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  port: not_a_number\n"), 0644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("server:\n  max_connections: 0\n"), 0644))
	_, err = Load(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestDurationHelpers(t *testing.T) {
	s := ServerConfig{TickRate: 20, IdleTimeout: 0, BindAddress: "0.0.0.0", Port: 9000}
	assert.Equal(t, 50*time.Millisecond, s.TickInterval())
	assert.Equal(t, time.Duration(0), s.IdleTimeoutDuration())
	assert.Equal(t, "0.0.0.0:9000", s.ListenAddress())
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, *Default(), *cfg)
}
