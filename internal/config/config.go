package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the config file.
const DefaultPath = "ksapi.yaml"

// Config holds all ksapi configuration.
type Config struct {
	// Server is the HTTP adapter.
	Server ServerConfig `yaml:"server"`

	// Engine selects and tunes the assembler backend.
	Engine EngineConfig `yaml:"engine"`

	// Cache is the persistent encoding cache.
	Cache CacheConfig `yaml:"cache"`

	// History is the job history store.
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "10s",
			WriteTimeout:    "60s",
			ShutdownTimeout: "5s",
			MaxConnections:  256,
			MaxBodyBytes:    1 << 20,
			MaxInstructions: 4096,
		},
		Engine: EngineConfig{
			Backend:     "kstool",
			KSToolPath:  "kstool",
			LineTimeout: "5s",
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "data/encodings.db",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "data/history.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("KSAPI_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("KSAPI_KSTOOL"); path != "" {
		c.Engine.KSToolPath = path
	}
	if level := os.Getenv("KSAPI_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv("KSAPI_CACHE_DB"); path != "" {
		c.Cache.Path = path
	}
	if path := os.Getenv("KSAPI_HISTORY_DB"); path != "" {
		c.History.Path = path
	}
}

// ValidBackends lists the supported engine backends.
var ValidBackends = []string{"kstool"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be >= 0")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be > 0")
	}
	if c.Server.MaxInstructions < 0 {
		return fmt.Errorf("server.max_instructions must be >= 0")
	}

	validBackend := false
	for _, b := range ValidBackends {
		if c.Engine.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid engine backend: %s (valid: %v)", c.Engine.Backend, ValidBackends)
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}

	return c.Logging.Validate()
}
