package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// ConsoleLogger writes leveled log lines through slog with a tint handler.
// Verbose maps to slog's debug level and is suppressed unless verbose is enabled.
type ConsoleLogger struct {
	logger *slog.Logger
}

// ConsoleOption customizes a ConsoleLogger.
type ConsoleOption func(*tint.Options)

// WithoutTimestamps drops the time attribute. Useful for golden output in tests.
func WithoutTimestamps() ConsoleOption {
	return func(o *tint.Options) {
		o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		}
	}
}

// WithColor forces ANSI colors on or off.
func WithColor(enabled bool) ConsoleOption {
	return func(o *tint.Options) {
		o.NoColor = !enabled
	}
}

// NewConsoleLogger creates a ConsoleLogger writing to stderr.
// If verbose is true, Verbose() calls will produce output.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stderr, verbose)
}

// NewConsoleLoggerTo creates a ConsoleLogger writing to w.
func NewConsoleLoggerTo(w io.Writer, verbose bool, opts ...ConsoleOption) *ConsoleLogger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    true,
	}
	for _, opt := range opts {
		opt(options)
	}
	return &ConsoleLogger{logger: slog.New(tint.NewHandler(w, options))}
}

// Slog exposes the underlying structured logger.
func (l *ConsoleLogger) Slog() *slog.Logger {
	return l.logger
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

func (l *ConsoleLogger) log(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.logger.Log(ctx, level, msg)
}
