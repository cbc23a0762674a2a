// Package logger sets up slog for the two front-ends: structured JSON
// in production, text for development, and a file-backed logger for
// the console TUI, which owns the terminal.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/questline/dungeonmaster/internal/config"
)

// Setup configures the global slog logger based on environment.
func Setup(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "dungeonmaster")
	slog.SetDefault(logger)
	return logger
}

// File returns a logger writing to the named file and a close func.
// On open failure the logger discards everything rather than fight
// the TUI for stdout.
func File(path string, level slog.Level) (*slog.Logger, func()) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return log, func() { _ = f.Close() }
}
