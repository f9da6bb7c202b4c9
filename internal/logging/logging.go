// Package logging wraps log/slog with the environment-variable conventions
// the rest of the module's configuration already uses.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Config controls handler format and level for a logger.
type Config struct {
	Format string // "text" or "json"
	Level  string // "debug", "info", "warn", "error"
}

// ConfigFromEnv reads LOG_FORMAT and LOG_LEVEL, defaulting to text/info.
func ConfigFromEnv() Config {
	cfg := Config{Format: "text", Level: "info"}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	return cfg
}

func (c Config) level() slog.Level {
	switch strings.ToLower(c.Level) {
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

// New builds a component-scoped logger from cfg.
func New(cfg Config, component string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.level()}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler).With("component", component)
}

// Default builds a component-scoped logger from LOG_FORMAT/LOG_LEVEL.
func Default(component string) *slog.Logger {
	return New(ConfigFromEnv(), component)
}
