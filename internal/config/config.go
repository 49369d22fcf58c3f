// Package config loads host settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full host configuration. Zero values fall back to the
// env-default tags, so a file cannot set sub_rounds or max_rounds to 0
// explicitly; pass the CLI flags for that.
type Config struct {
	Log     Log     `yaml:"log" json:"log"`
	Host    Host    `yaml:"host" json:"host"`
	Metrics Metrics `yaml:"metrics" json:"metrics"`
	Trace   Trace   `yaml:"trace" json:"trace"`
}

type Log struct {
	Level      string `yaml:"level" json:"level" env:"CONSUMABLE_LOG_LEVEL" env-default:"info" env-description:"log level: debug, info, warn or error"`
	File       string `yaml:"file" json:"file" env:"CONSUMABLE_LOG_FILE" env-description:"also write logs to this file, rotated by size"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" env:"CONSUMABLE_LOG_MAX_SIZE_MB" env-default:"50" env-description:"log file size in megabytes before rotation"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" env:"CONSUMABLE_LOG_MAX_BACKUPS" env-default:"3" env-description:"rotated log files to keep"`
}

type Host struct {
	TickRate  time.Duration `yaml:"tick_rate" json:"tick_rate" env:"CONSUMABLE_TICK_RATE" env-default:"16ms" env-description:"interval between rounds in paced mode"`
	SubRounds int           `yaml:"sub_rounds" json:"sub_rounds" env:"CONSUMABLE_SUB_ROUNDS" env-default:"1" env-description:"FixedUpdate repeats per round when a scenario does not set sub_rounds"`
	MaxRounds int64         `yaml:"max_rounds" json:"max_rounds" env:"CONSUMABLE_MAX_ROUNDS" env-default:"0" env-description:"round count override for scenario runs (0 keeps the scenario value)"`
}

type Metrics struct {
	Addr string `yaml:"addr" json:"addr" env:"CONSUMABLE_METRICS_ADDR" env-description:"serve Prometheus metrics on this address"`
}

type Trace struct {
	Database string `yaml:"database" json:"database" env:"CONSUMABLE_TRACE_DB" env-description:"SQLite trace journal path"`
}

// Load reads path (if non-empty) and then the environment, which overrides
// the file. A missing file is an error only when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s: %w", path, err)
			}
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that struct tags cannot express.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Host.TickRate <= 0 {
		return fmt.Errorf("host.tick_rate must be positive, got %s", c.Host.TickRate)
	}
	if c.Host.SubRounds < 0 {
		return fmt.Errorf("host.sub_rounds must not be negative, got %d", c.Host.SubRounds)
	}
	if c.Host.MaxRounds < 0 {
		return fmt.Errorf("host.max_rounds must not be negative, got %d", c.Host.MaxRounds)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// Usage returns the environment variable help text.
func Usage() (string, error) {
	header := "Environment variables:"
	return cleanenv.GetDescription(&Config{}, &header)
}
