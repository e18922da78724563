// Package logging builds the process-wide structured logger. Every
// concierge binary logs JSON to stdout with a fixed service attribute so
// the api and mcp surfaces can be told apart in aggregated output.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: resolveLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// resolveLevel maps the config value onto a slog level; anything
// unrecognized falls back to info rather than failing startup.
func resolveLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
