// Package config defines the paperloom configuration model and its loading
// from files, environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q, must be one of %v", c.LogLevel, validLogLevels)
	}

	if c.Engine.Binary == "" {
		return fmt.Errorf("engine.binary must not be empty")
	}
	if c.Engine.TimeoutSec <= 0 {
		return fmt.Errorf("engine.timeout_sec must be positive, got %d", c.Engine.TimeoutSec)
	}
	if c.Engine.ProbeTimeoutSec <= 0 {
		return fmt.Errorf("engine.probe_timeout_sec must be positive, got %d", c.Engine.ProbeTimeoutSec)
	}
	if c.Engine.FallbackTimeoutSec < 0 {
		return fmt.Errorf("engine.fallback_timeout_sec must not be negative, got %d", c.Engine.FallbackTimeoutSec)
	}

	if c.Sorter.YTolerance <= 0 {
		return fmt.Errorf("sorter.y_tolerance must be positive, got %g", c.Sorter.YTolerance)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d, must be between 1 and 65535", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}

	return nil
}

// WriteFile writes the configuration as YAML to the given path.
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// GenerateDefaultConfigFile writes a config file populated with defaults,
// used by the `config init` command.
func GenerateDefaultConfigFile(path string) error {
	if path == "" {
		path = ConfigFileName + ".yaml"
	}
	cfg := DefaultConfig()
	return cfg.WriteFile(path)
}
