// Package logging provides structured logging for Fangio. It wraps
// log/slog to produce JSON-formatted logs suitable for post-hoc analysis of
// plan executions.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON slog.Logger writing to w at the given level.
// An unrecognized level falls back to info. A nil writer means stderr.
func New(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler)
}

// Setup installs a logger as the process default and returns it.
func Setup(level string) *slog.Logger {
	log := New(os.Stderr, level)
	slog.SetDefault(log)
	return log
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
