package hayabusa

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific helpers so search
// events log with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is
// nil, a text handler to stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// SearchStarted logs the start of a search session.
func (l *Logger) SearchStarted(session uint64, workers int, control string) {
	l.Info("search started",
		slog.Uint64("session", session),
		slog.Int("workers", workers),
		slog.String("control", control),
	)
}

// SearchFinished logs the final result of a search session.
func (l *Logger) SearchFinished(session uint64, reason string, depth int, nodes uint64, nps uint64) {
	l.Info("search finished",
		slog.Uint64("session", session),
		slog.String("reason", reason),
		slog.Int("depth", depth),
		slog.Uint64("nodes", nodes),
		slog.Uint64("nps", nps),
	)
}
