// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the diagnostic slog logger. Diagnostics go to
// stderr so stdout stays free for digest output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a text slog.Logger on stderr at the named level.
func New(level string) *slog.Logger {
	return NewWriter(os.Stderr, level)
}

// NewWriter returns a text slog.Logger writing to w.
func NewWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: levelFromString(level),
	}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
