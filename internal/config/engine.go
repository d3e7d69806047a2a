package config

import "time"

// EngineConfig configures the assembler backend.
type EngineConfig struct {
	Backend     string `yaml:"backend"`      // kstool
	KSToolPath  string `yaml:"kstool_path"`  // Binary name or path
	LineTimeout string `yaml:"line_timeout"` // Per-instruction budget
}

// CacheConfig configures the encoding cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HistoryConfig configures the job history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// GetLineTimeout returns the per-line engine timeout as a duration.
func (c *Config) GetLineTimeout() time.Duration {
	return parseDuration(c.Engine.LineTimeout, 5*time.Second)
}
