package mutprox

import (
	"io"
	"log/slog"
)

// Logger receives progress and diagnostic messages. *slog.Logger satisfies
// it. Logging is never part of the rescaling result.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return slog.New(slog.DiscardHandler)
}

// NewTextLogger returns a human-readable Logger writing to w at the given
// minimum level.
func NewTextLogger(w io.Writer, level slog.Level) Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger returns a JSON Logger writing to w at the given minimum level.
func NewJSONLogger(w io.Writer, level slog.Level) Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
