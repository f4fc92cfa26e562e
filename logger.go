package recgo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with recgo-specific context.
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

// WithModel adds a model field to the logger.
func (l *Logger) WithModel(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("model", name),
	}
}

// WithStrategy adds a strategy field to the logger.
func (l *Logger) WithStrategy(strategy string) *Logger {
	return &Logger{
		Logger: l.Logger.With("strategy", strategy),
	}
}

// LogRecommend logs a recommendation request.
func (l *Logger) LogRecommend(ctx context.Context, model, strategy string, items int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "recommendation failed",
			"model", model,
			"strategy", strategy,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "recommendation completed",
			"model", model,
			"strategy", strategy,
			"items", items,
			"duration", duration,
		)
	}
}

// LogCompare logs a side-by-side comparison.
func (l *Logger) LogCompare(ctx context.Context, models, failed int, duration time.Duration) {
	if failed > 0 {
		l.WarnContext(ctx, "comparison completed with failures",
			"models", models,
			"failed", failed,
			"duration", duration,
		)
	} else {
		l.InfoContext(ctx, "comparison completed",
			"models", models,
			"duration", duration,
		)
	}
}

// LogSwitch logs a model switch.
func (l *Logger) LogSwitch(ctx context.Context, model string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "model switch failed",
			"model", model,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model switched",
			"model", model,
		)
	}
}
