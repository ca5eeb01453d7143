// Package config holds the server's startup configuration: read once,
// immutable for the process lifetime.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr   = ":5000"
	DefaultMetricsAddr  = ":9090"
	DefaultHistoryDepth = 100
)

type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	MetricsAddr  string `yaml:"metrics_addr"`
	HistoryDepth int    `yaml:"history_depth"`
	LogLevel     string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		ListenAddr:   DefaultListenAddr,
		MetricsAddr:  DefaultMetricsAddr,
		HistoryDepth: DefaultHistoryDepth,
		LogLevel:     "info",
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.HistoryDepth < 0 {
		return fmt.Errorf("history_depth must not be negative")
	}
	return nil
}

// SlogLevel maps the configured verbosity onto a slog level, falling
// back to info for unknown values.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
