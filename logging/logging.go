// Package logging supplies the ambient structured logger used by every
// component manager in abyssviewer. It is a thin wrapper over log/slog so
// call sites can pass event context (model key, hand, session state)
// without each package inventing its own field names.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the shared structured-logging handle.
type Logger = *slog.Logger

// New creates a text-handler logger writing to w at the given level.
func New(w io.Writer, level slog.Level) Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default returns a logger writing to stderr at Info level, the
// fallback used when a Dependencies struct omits a Logger.
func Default() Logger {
	return New(os.Stderr, slog.LevelInfo)
}

// Discard returns a logger that drops everything, for tests.
func Discard() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RecoverListener runs fn and reports any panic through log instead of
// letting it escape, matching the "isolated to that listener" rule in the
// event-bus error handling design.
func RecoverListener(ctx context.Context, log Logger, event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "listener panic recovered", "event", event, "panic", r)
		}
	}()
	fn()
}
