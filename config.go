package flutterhost

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config carries the host-side settings for running an embedded engine.
// Values come from an optional TOML project file, overridden by
// FLUTTERHOST_* environment variables.
type Config struct {
	// LibraryPath locates the embedder shared library.
	LibraryPath string `envconfig:"LIBRARY_PATH" toml:"library_path"`

	// AssetsPath locates the application's compiled asset bundle.
	AssetsPath string `envconfig:"ASSETS_PATH" toml:"assets_path"`

	// ICUDataPath locates the icudtl.dat the engine needs at startup.
	ICUDataPath string `envconfig:"ICU_DATA_PATH" toml:"icu_data_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" toml:"log_level"`

	// TracePath, when set, records all channel traffic to this file.
	TracePath string `envconfig:"TRACE_PATH" toml:"trace_path"`
}

// LoadConfig reads the TOML file at path (skipped when path is empty) and
// then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process("flutterhost", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}

// SlogLevel maps LogLevel to its slog value; unknown names fall back to
// info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
