package termid

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger with termid-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithUUID adds a uuid field to the logger.
func (l *Logger) WithUUID(u uuid.UUID) *Logger {
	return &Logger{
		Logger: l.Logger.With("uuid", u.String()),
	}
}

// WithNid adds a nid field to the logger.
func (l *Logger) WithNid(nid int32) *Logger {
	return &Logger{
		Logger: l.Logger.With("nid", nid),
	}
}

// WithBackend adds a backend field to the logger.
func (l *Logger) WithBackend(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("backend", name),
	}
}

// LogResolve logs a resolve operation.
func (l *Logger) LogResolve(ctx context.Context, u uuid.UUID, nid int32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "resolve failed",
			"uuid", u.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "resolve completed",
			"uuid", u.String(),
			"nid", nid,
		)
	}
}

// LogBind logs a bind operation.
func (l *Logger) LogBind(ctx context.Context, u uuid.UUID, nid int32, added bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "bind failed",
			"uuid", u.String(),
			"nid", nid,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "bind completed",
			"uuid", u.String(),
			"nid", nid,
			"added", added,
		)
	}
}

// LogCommit logs a commit.
func (l *Logger) LogCommit(ctx context.Context, maxNid int32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"max_nid", maxNid,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "commit completed",
			"max_nid", maxNid,
		)
	}
}

// LogOpen logs opening a database.
func (l *Logger) LogOpen(ctx context.Context, backend string, maxNid int32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"backend", backend,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "database opened",
			"backend", backend,
			"max_nid", maxNid,
		)
	}
}
