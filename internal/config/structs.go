package config

import (
	"time"

	"github.com/paperloom/paperloom/internal/convert"
	"github.com/paperloom/paperloom/internal/document"
)

// Config is the complete configuration for the paperloom service. It covers
// all commands (convert, render, serve) and loads from configuration files,
// environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Engine EngineConfig `mapstructure:"engine" yaml:"engine" json:"engine"`
	Sorter SorterConfig `mapstructure:"sorter" yaml:"sorter" json:"sorter"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// EngineConfig controls the primary conversion engine and the fallback chain.
type EngineConfig struct {
	Binary             string `mapstructure:"binary" yaml:"binary" json:"binary"`
	Backend            string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Language           string `mapstructure:"language" yaml:"language" json:"language"`
	Device             string `mapstructure:"device" yaml:"device" json:"device"`
	TableRecognition   bool   `mapstructure:"table_recognition" yaml:"table_recognition" json:"table_recognition"`
	FormulaRecognition bool   `mapstructure:"formula_recognition" yaml:"formula_recognition" json:"formula_recognition"`
	TimeoutSec         int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ProbeTimeoutSec    int    `mapstructure:"probe_timeout_sec" yaml:"probe_timeout_sec" json:"probe_timeout_sec"`
	FallbackTimeoutSec int    `mapstructure:"fallback_timeout_sec" yaml:"fallback_timeout_sec" json:"fallback_timeout_sec"`
}

// SorterConfig controls reading-order reconstruction.
type SorterConfig struct {
	YTolerance float64 `mapstructure:"y_tolerance" yaml:"y_tolerance" json:"y_tolerance"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host               string `mapstructure:"host" yaml:"host" json:"host"`
	Port               int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin         string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB        int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec" json:"shutdown_timeout_sec"`
	UploadsDir         string `mapstructure:"uploads_dir" yaml:"uploads_dir" json:"uploads_dir"`
	OutputsDir         string `mapstructure:"outputs_dir" yaml:"outputs_dir" json:"outputs_dir"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	engine := convert.DefaultConfig()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Engine: EngineConfig{
			Binary:             engine.EngineBinary,
			Backend:            engine.EngineBackend,
			Language:           engine.Language,
			Device:             engine.Device,
			TableRecognition:   engine.TableRecognition,
			FormulaRecognition: engine.FormulaRecognition,
			TimeoutSec:         int(engine.EngineTimeout / time.Second),
			ProbeTimeoutSec:    int(engine.ProbeTimeout / time.Second),
			FallbackTimeoutSec: int(engine.FallbackTimeout / time.Second),
		},
		Sorter: SorterConfig{
			YTolerance: document.DefaultYTolerance,
		},
		Server: ServerConfig{
			Host:               "localhost",
			Port:               8000,
			CORSOrigin:         "*",
			MaxUploadMB:        100,
			ShutdownTimeoutSec: 10,
			UploadsDir:         "uploads",
			OutputsDir:         "outputs",
		},
	}
}

// ConvertConfig translates the engine and sorter sections into the
// orchestrator's configuration.
func (c *Config) ConvertConfig() convert.Config {
	return convert.Config{
		EngineBinary:       c.Engine.Binary,
		EngineBackend:      c.Engine.Backend,
		Language:           c.Engine.Language,
		Device:             c.Engine.Device,
		TableRecognition:   c.Engine.TableRecognition,
		FormulaRecognition: c.Engine.FormulaRecognition,
		EngineTimeout:      time.Duration(c.Engine.TimeoutSec) * time.Second,
		ProbeTimeout:       time.Duration(c.Engine.ProbeTimeoutSec) * time.Second,
		FallbackTimeout:    time.Duration(c.Engine.FallbackTimeoutSec) * time.Second,
		YTolerance:         c.Sorter.YTolerance,
	}
}
