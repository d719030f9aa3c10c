package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "paperloom"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PAPERLOOM"
)

// Loader handles loading configuration from files, environment variables and
// bound command-line flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader backed by the global viper instance so that
// flag bindings made during command setup take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load resolves the configuration from the standard search paths, the
// environment and defaults, then validates it. A missing config file is not
// an error; defaults and environment variables apply.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshalAndValidate()
}

// LoadWithFile resolves the configuration from a specific file path instead
// of the search paths. An empty path falls back to Load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	return l.unmarshalAndValidate()
}

func (l *Loader) unmarshalAndValidate() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// ConfigFileUsed returns the path of the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}

	l.v.AddConfigPath("/etc/paperloom")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "paperloom"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "paperloom"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("engine.binary", defaults.Engine.Binary)
	l.v.SetDefault("engine.backend", defaults.Engine.Backend)
	l.v.SetDefault("engine.language", defaults.Engine.Language)
	l.v.SetDefault("engine.device", defaults.Engine.Device)
	l.v.SetDefault("engine.table_recognition", defaults.Engine.TableRecognition)
	l.v.SetDefault("engine.formula_recognition", defaults.Engine.FormulaRecognition)
	l.v.SetDefault("engine.timeout_sec", defaults.Engine.TimeoutSec)
	l.v.SetDefault("engine.probe_timeout_sec", defaults.Engine.ProbeTimeoutSec)
	l.v.SetDefault("engine.fallback_timeout_sec", defaults.Engine.FallbackTimeoutSec)

	l.v.SetDefault("sorter.y_tolerance", defaults.Sorter.YTolerance)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.shutdown_timeout_sec", defaults.Server.ShutdownTimeoutSec)
	l.v.SetDefault("server.uploads_dir", defaults.Server.UploadsDir)
	l.v.SetDefault("server.outputs_dir", defaults.Server.OutputsDir)
}
