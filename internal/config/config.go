// Package config loads quark's optional YAML configuration.
//
//	log_level: debug      # debug | info | warn | error
//	format: json          # text | json
//	journal: quark.db     # relative paths resolve against the config file
//
// Every field is optional. Unknown fields are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable holding a default config path.
const EnvPath = "QUARK_CONFIG"

// Config holds settings shared by every subcommand.
type Config struct {
	LogLevel string `yaml:"log_level"`
	Format   string `yaml:"format"`
	Journal  string `yaml:"journal,omitempty"` // empty disables journaling
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{LogLevel: "warn", Format: "text"}
}

// Load reads and validates the file at path.
// Fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Defaults()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Journal != "" && !filepath.IsAbs(cfg.Journal) {
		cfg.Journal = filepath.Join(filepath.Dir(path), cfg.Journal)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Resolve loads path if set, else the file named by QUARK_CONFIG,
// else returns Defaults.
func Resolve(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Defaults(), nil
	}
	return Load(path)
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", c.Format)
	}
	return nil
}

// Level returns the configured slog level.
// Call Validate first; an invalid level falls back to warn.
func (c Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
}
