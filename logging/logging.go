// Package logging provides the structured logger used throughout the cache.
// It wraps log/slog behind a small interface so cache code can log without
// depending on slog directly, and so tests can substitute a no-op logger.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is the minimum severity a Logger will emit.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger provides structured logging for the cache. It wraps either a
// slog-backed implementation or a no-op implementation behind a uniform
// interface.
type Logger struct {
	impl loggerImpl
}

type loggerImpl interface {
	debug(ctx context.Context, msg string, args ...any)
	info(ctx context.Context, msg string, args ...any)
	warn(ctx context.Context, msg string, args ...any)
	error(ctx context.Context, msg string, args ...any)
	with(args ...any) loggerImpl
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	if l != nil && l.impl != nil {
		l.impl.debug(ctx, msg, args...)
	}
}

// Info logs at LevelInfo.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	if l != nil && l.impl != nil {
		l.impl.info(ctx, msg, args...)
	}
}

// Warn logs at LevelWarn.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	if l != nil && l.impl != nil {
		l.impl.warn(ctx, msg, args...)
	}
}

// Error logs at LevelError.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	if l != nil && l.impl != nil {
		l.impl.error(ctx, msg, args...)
	}
}

// With returns a derived Logger that attaches args to every subsequent
// log call.
func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.impl == nil {
		return l
	}
	return &Logger{impl: l.impl.with(args...)}
}

// WithOperation attaches the name of the cache operation being performed.
func (l *Logger) WithOperation(operation string) *Logger {
	return l.With("operation", operation)
}

// WithFingerprint attaches the fingerprint an operation concerns.
func (l *Logger) WithFingerprint(fingerprint string) *Logger {
	return l.With("fingerprint", fingerprint)
}

// WithSize attaches a byte size.
func (l *Logger) WithSize(size int64) *Logger {
	return l.With("size", size)
}

// WithDuration attaches an elapsed duration.
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return l.With("duration", d)
}

// Config controls a Logger's verbosity and behavior.
type Config struct {
	// Level is the minimum level that will be emitted.
	Level LogLevel
	// EnableCallerInfo includes source file and line in log records.
	EnableCallerInfo bool
	// EnablePerformanceLogging is stored with the logger; nothing in this
	// module reads it, so it does not change what is logged.
	EnablePerformanceLogging bool
	// EnableCacheOperations is stored with the logger; nothing in this
	// module reads it. Hit/miss records are emitted at debug level
	// whatever its value, so Level alone decides whether they appear.
	EnableCacheOperations bool
}

// DefaultConfig returns the defaults: info level (which suppresses the
// debug-level hit/miss records), no caller info, EnablePerformanceLogging
// on and EnableCacheOperations off.
func DefaultConfig() Config {
	return Config{
		Level:                    LevelInfo,
		EnableCallerInfo:         false,
		EnablePerformanceLogging: true,
		EnableCacheOperations:    false,
	}
}

// New creates a structured logger backed by slog, writing text-formatted
// records to os.Stderr.
func New(cfg Config) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slogLevel(cfg.Level),
		AddSource: cfg.EnableCallerInfo,
	})
	return &Logger{impl: &slogImpl{logger: slog.New(handler), config: cfg}}
}

// NewNop creates a Logger that discards everything, for tests and for
// callers that don't want cache diagnostics.
func NewNop() *Logger {
	return &Logger{impl: nopImpl{}}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type slogImpl struct {
	logger *slog.Logger
	config Config
	fields []any
}

func (s *slogImpl) allArgs(args []any) []any {
	if len(s.fields) == 0 {
		return args
	}
	out := make([]any, 0, len(s.fields)+len(args))
	out = append(out, s.fields...)
	out = append(out, args...)
	return out
}

func (s *slogImpl) debug(ctx context.Context, msg string, args ...any) {
	s.logger.DebugContext(ctx, msg, s.allArgs(args)...)
}

func (s *slogImpl) info(ctx context.Context, msg string, args ...any) {
	s.logger.InfoContext(ctx, msg, s.allArgs(args)...)
}

func (s *slogImpl) warn(ctx context.Context, msg string, args ...any) {
	s.logger.WarnContext(ctx, msg, s.allArgs(args)...)
}

func (s *slogImpl) error(ctx context.Context, msg string, args ...any) {
	s.logger.ErrorContext(ctx, msg, s.allArgs(args)...)
}

func (s *slogImpl) with(args ...any) loggerImpl {
	fields := make([]any, 0, len(s.fields)+len(args))
	fields = append(fields, s.fields...)
	fields = append(fields, args...)
	return &slogImpl{logger: s.logger, config: s.config, fields: fields}
}

type nopImpl struct{}

func (nopImpl) debug(context.Context, string, ...any) {}
func (nopImpl) info(context.Context, string, ...any)  {}
func (nopImpl) warn(context.Context, string, ...any)  {}
func (nopImpl) error(context.Context, string, ...any) {}
func (nopImpl) with(...any) loggerImpl                { return nopImpl{} }

// ParseLevel parses a case-insensitive textual log level.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}
