package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	FormatJSON    LogFormat = "json"
	FormatText    LogFormat = "text"
	FormatConsole LogFormat = "console" // text without timestamps, for terminals
)

// Logger wraps a *slog.Logger. The Context variants add the run fields
// stored by WithRunID, WithRules and WithSource.
type Logger struct {
	slog   *slog.Logger
	format LogFormat
}

// Config mirrors telemetry.logging in the application configuration.
type Config struct {
	Level     string
	Format    string
	AddSource bool
	Writer    io.Writer // os.Stderr when nil; stdout carries command output
}

// New returns a Logger for cfg.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatConsole:
		opts.ReplaceAttr = consoleAttrs
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{slog: slog.New(handler), format: format}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return &Logger{slog: slog.New(h), format: FormatText}
}

func consoleAttrs(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.Attr{}
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(slog.LevelKey, strings.ToLower(lvl.String()))
		}
	}
	return a
}

// Slog returns the underlying logger, for packages that take *slog.Logger.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// Format returns the output format.
func (l *Logger) Format() LogFormat { return l.format }

// With returns a Logger that adds args to every line.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), format: l.format}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logContext(ctx, slog.LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logContext(ctx, slog.LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logContext(ctx, slog.LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logContext(ctx, slog.LevelError, msg, args)
}

func (l *Logger) logContext(ctx context.Context, level slog.Level, msg string, args []any) {
	if !l.slog.Enabled(ctx, level) {
		return
	}
	l.slog.Log(ctx, level, msg, append(extractContextFields(ctx), args...)...)
}

// ParseLevel maps debug, info, warn (or warning) and error to slog levels.
// An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

// ParseFormat maps json, text and console to a LogFormat. An empty string
// is json.
func ParseFormat(s string) (LogFormat, error) {
	switch f := LogFormat(strings.ToLower(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatText, FormatConsole:
		return f, nil
	}
	return FormatJSON, fmt.Errorf("unknown log format: %s", s)
}
