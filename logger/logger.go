// Package logger provides structured logging for the FeedKit runtime.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Load-More state transition logging
//   - Filter change and conflict logging
//   - Cache and fetch event logging
//   - Contextual logging with request tracing
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// logOutput is the destination for log records. Tests swap this for a buffer.
	logOutput io.Writer = os.Stderr

	// customHandler is set via SetLogger and takes precedence over Configure.
	customHandler slog.Handler
)

func init() {
	// Check LOG_LEVEL environment variable
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}

	// Initialize with text handler writing to stderr
	handler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLogger replaces the global logger with one built on the given handler.
// A handler set here is preserved across later Configure calls, so hosts can
// route FeedKit logs into their own logging stack.
func SetLogger(handler slog.Handler) {
	customHandler = handler
	DefaultLogger = slog.New(handler)
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	handler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
// This is a convenience wrapper around SetLevel for command-line verbose flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
// The context can be used for request tracing and cancellation.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
// Debug messages are only output when the log level is set to LevelDebug or lower.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
// Use for recoverable errors or unexpected but non-critical situations.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
// Use for errors that affect operation but don't cause complete failure.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// Transition logs an applied Load-More state transition at debug level.
// Additional attributes can be passed as key-value pairs after the required parameters.
func Transition(from, to, reason string, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"from", from,
		"to", to,
		"reason", reason,
	)
	allAttrs = append(allAttrs, attrs...)
	Debug("state transition", allAttrs...)
}

// TransitionRejected logs a rejected Load-More transition request.
// Invalid transitions are expected during normal operation (callers probe
// with boolean returns), so this logs at warn rather than error.
func TransitionRejected(from, to, cause string, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"from", from,
		"to", to,
		"cause", cause,
	)
	allAttrs = append(allAttrs, attrs...)
	Warn("state transition rejected", allAttrs...)
}

// FilterChange logs an accepted filter update with its change-detection summary.
func FilterChange(source string, changedFields []string, conflicts int, attrs ...any) {
	allAttrs := make([]any, 0, 8+len(attrs))
	allAttrs = append(allAttrs,
		"source", source,
		"changed_fields", changedFields,
		"conflicts", conflicts,
	)
	allAttrs = append(allAttrs, attrs...)
	Debug("filter change", allAttrs...)
}

// CacheEvent logs a cache hit, miss, or de-duplication for a request key.
func CacheEvent(kind, key string, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs,
		"kind", kind,
		"key", key,
	)
	allAttrs = append(allAttrs, attrs...)
	Debug("cache event", allAttrs...)
}

// FetchFailed logs a failed page fetch for debugging and monitoring.
func FetchFailed(key string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs,
		"key", key,
		"error", err,
	)
	allAttrs = append(allAttrs, attrs...)
	Error("page fetch failed", allAttrs...)
}

// Persistence logs the outcome of a storage read or write. Failures are
// warnings: persistence is best-effort and components continue in memory.
func Persistence(op, key string, err error) {
	if err != nil {
		Warn("persistence "+op+" failed", "key", key, "error", err)
		return
	}
	Debug("persistence "+op, "key", key)
}

// maxLoggedQueryLen bounds user query text in log output.
const maxLoggedQueryLen = 32

// TruncateQuery shortens user-entered search text for log output so logs do
// not accumulate full query strings.
func TruncateQuery(q string) string {
	q = strings.TrimSpace(q)
	if len(q) <= maxLoggedQueryLen {
		return q
	}
	return q[:maxLoggedQueryLen] + "..."
}
