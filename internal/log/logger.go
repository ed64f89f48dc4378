// Package log provides the leveled logger shared by the CLI and the library
// packages. Library code logs through clog so request-scoped fields travel
// with the context; the CLI configures the handler once via Initialize.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"
)

// Verbosity levels
const (
	LevelQuiet = iota // Default: only errors and warnings
	LevelInfo         // -v: progress messages, counts, transitions
	LevelDebug        // -vv: API calls, token cache decisions
	LevelTrace        // -vvv: request details
)

// slogLevelTrace sits below debug.
const slogLevelTrace = slog.Level(-8)

var (
	mu        sync.RWMutex
	verbosity int
	logger    *slog.Logger
)

// Initialize sets up the global logger with the specified verbosity level
// and installs its handler as the slog default, which clog falls back to
// when a context carries no logger.
func Initialize(level int, w io.Writer) {
	var slogLevel slog.Level
	switch {
	case level >= LevelTrace:
		slogLevel = slogLevelTrace
	case level >= LevelDebug:
		slogLevel = slog.LevelDebug
	case level >= LevelInfo:
		slogLevel = slog.LevelInfo
	default:
		slogLevel = slog.LevelWarn
	}

	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel}))

	mu.Lock()
	verbosity = level
	logger = l
	mu.Unlock()

	slog.SetDefault(l)
}

// WithContext returns a context carrying the configured logger, so that
// clog.FromContext in library code writes to the same handler.
func WithContext(ctx context.Context) context.Context {
	return clog.WithLogger(ctx, clog.NewLogger(current()))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Info logs at info level (-v)
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Debug logs at debug level (-vv)
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Trace logs at trace level (-vvv)
func Trace(msg string, args ...any) {
	current().Log(context.Background(), slogLevelTrace, msg, args...)
}

// Warn logs at warn level (always visible)
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs at error level (always visible)
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// Redact masks a secret for display, keeping only a short prefix so two
// values can be told apart. Secrets shorter than 8 characters are fully
// masked.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", 4)
}

// IsInfo returns true if info-level logging is enabled
func IsInfo() bool {
	return Verbosity() >= LevelInfo
}

// IsDebug returns true if debug-level logging is enabled
func IsDebug() bool {
	return Verbosity() >= LevelDebug
}

// IsTrace returns true if trace-level logging is enabled
func IsTrace() bool {
	return Verbosity() >= LevelTrace
}

// Verbosity returns the current verbosity level
func Verbosity() int {
	mu.RLock()
	defer mu.RUnlock()
	return verbosity
}

func init() {
	// Quiet mode to stderr until the CLI configures otherwise.
	verbosity = LevelQuiet
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}
