package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.Robot.ConnectTimeout())
	assert.Equal(t, 3*time.Second, cfg.Robot.CommandTimeout())
	assert.Equal(t, -1, cfg.Robot.MaxReconnectAttempts)
	assert.Equal(t, time.Second, cfg.Robot.ReconnectDelay())
	assert.Equal(t, 16*time.Second, cfg.Robot.MaxReconnectDelay())
	assert.Equal(t, "127.0.0.1:5000", cfg.Robot.Address())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"robot": {"host": "10.0.0.5", "port": 6001, "commandTimeoutMs": 1500, "maxReconnectAttempts": 3},
		"envelope": {"xMin": -500, "xMax": 500, "yMin": -500, "yMax": 500, "zMin": 0, "zMax": 800}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Robot.Host)
	assert.Equal(t, 6001, cfg.Robot.Port)
	assert.Equal(t, 1500*time.Millisecond, cfg.Robot.CommandTimeout())
	assert.Equal(t, 3, cfg.Robot.MaxReconnectAttempts)
	// campos ausentes mantêm o padrão
	assert.Equal(t, 5000, cfg.Robot.ConnectTimeoutMs)
	assert.Equal(t, 800.0, cfg.Envelope.ZMax)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `{}`)
	t.Setenv("ROBOT_HOST", "robot.local")
	t.Setenv("ROBOT_PORT", "7000")
	t.Setenv("ROBOT_MAX_RECONNECT_ATTEMPTS", "5")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "robot.local", cfg.Robot.Host)
	assert.Equal(t, 7000, cfg.Robot.Port)
	assert.Equal(t, 5, cfg.Robot.MaxReconnectAttempts)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvironmentOverrideInvalidNumber(t *testing.T) {
	path := writeConfig(t, `{}`)
	t.Setenv("ROBOT_PORT", "abc")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "empty host", mutate: func(c *Config) { c.Robot.Host = "" }},
		{name: "port out of range", mutate: func(c *Config) { c.Robot.Port = 70000 }},
		{name: "zero command timeout", mutate: func(c *Config) { c.Robot.CommandTimeoutMs = 0 }},
		{name: "attempts below sentinel", mutate: func(c *Config) { c.Robot.MaxReconnectAttempts = -2 }},
		{name: "max delay below base", mutate: func(c *Config) { c.Robot.MaxReconnectDelayMs = 500 }},
		{name: "inverted envelope", mutate: func(c *Config) { c.Envelope.XMin, c.Envelope.XMax = 10, -10 }},
		{name: "server port", mutate: func(c *Config) { c.Server.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
