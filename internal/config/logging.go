package config

import (
	"fmt"
	"strings"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error
	Format      string `yaml:"format"`      // json, console
	Development bool   `yaml:"development"` // Development encoder defaults
	File        string `yaml:"file"`        // Optional output path, stderr when empty
}

// Validate checks the level and format names.
func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "json", "console", "text":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Format)
	}
	return nil
}

// OutputPaths returns the zap output paths for this config.
func (c *LoggingConfig) OutputPaths() []string {
	if c.File == "" {
		return []string{"stderr"}
	}
	return []string{c.File}
}
