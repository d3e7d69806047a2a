package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"KSAPI_ADDR", "KSAPI_KSTOOL", "KSAPI_LOG_LEVEL", "KSAPI_CACHE_DB", "KSAPI_HISTORY_DB"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "kstool", cfg.Engine.Backend)
	assert.Equal(t, 4096, cfg.Server.MaxInstructions)
	assert.True(t, cfg.Cache.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "ksapi.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:9999"
	cfg.Engine.KSToolPath = "/opt/keystone/bin/kstool"
	cfg.History.Enabled = false
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ksapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ksapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = " " }},
		{"negative connections", func(c *Config) { c.Server.MaxConnections = -1 }},
		{"zero body", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
		{"negative instructions", func(c *Config) { c.Server.MaxInstructions = -5 }},
		{"unknown backend", func(c *Config) { c.Engine.Backend = "capstone" }},
		{"cache without path", func(c *Config) { c.Cache.Path = "" }},
		{"history without path", func(c *Config) { c.History.Path = "" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Cache.Path = ""
	assert.NoError(t, cfg.Validate(), "a disabled cache needs no path")
}

func TestDurationGetters(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.GetReadTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetWriteTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetShutdownTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetLineTimeout())

	cfg.Engine.LineTimeout = "250ms"
	assert.Equal(t, 250*time.Millisecond, cfg.GetLineTimeout())

	cfg.Engine.LineTimeout = "soon"
	assert.Equal(t, 5*time.Second, cfg.GetLineTimeout())

	cfg.Server.ReadTimeout = "-1s"
	assert.Equal(t, 10*time.Second, cfg.GetReadTimeout())
}

func TestLoggingOutputPaths(t *testing.T) {
	lc := LoggingConfig{}
	assert.Equal(t, []string{"stderr"}, lc.OutputPaths())
	lc.File = "/var/log/ksapi.log"
	assert.Equal(t, []string{"/var/log/ksapi.log"}, lc.OutputPaths())
}
