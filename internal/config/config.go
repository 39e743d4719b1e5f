// Package config loads studyctl's YAML configuration file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration. Command-line flags override it.
type Config struct {
	Database struct {
		Driver string `yaml:"driver" validate:"oneof=sqlite3 pgx"`
		DSN    string `yaml:"dsn" validate:"required"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=text json"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Database.DSN = "study.db"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads filename over the defaults. An empty filename returns the
// defaults unchanged.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode config %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field values after flags have been applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps log.level to a slog level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the logger described by the log section, writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
