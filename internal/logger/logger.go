// Package logger provides structured logging setup for the kore service.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/socket-link/kore/internal/config"
)

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
func New(cfg config.Logging) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	return slog.New(handler).With("service", cfg.Service)
}

// Init creates the logger and installs it as the process default, so
// package-level slog calls share the same handler.
func Init(cfg config.Logging) *slog.Logger {
	log := New(cfg)
	slog.SetDefault(log)
	return log
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
