// Package log provides structured logging for go-headpilot.
// It wraps slog with sensible defaults for production use.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// FileOptions configures the optional rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	InitFile(level, FileOptions{})
}

// InitFile is Init with output additionally written to a size-rotated file.
// An empty Path logs to stdout only.
func InitFile(level string, file FileOptions) {
	once.Do(func() {
		opts := &slog.HandlerOptions{
			Level: ParseLevel(level),
		}

		var out io.Writer = os.Stdout
		if file.Path != "" {
			out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   file.Path,
				MaxSize:    orDefault(file.MaxSizeMB, 20),
				MaxBackups: orDefault(file.MaxBackups, 3),
				MaxAge:     orDefault(file.MaxAgeDays, 14),
				Compress:   true,
			})
		}

		// Use JSON in production, text in development
		if os.Getenv("GO_ENV") == "production" {
			logger = slog.New(slog.NewJSONHandler(out, opts))
		} else {
			logger = slog.New(slog.NewTextHandler(out, opts))
		}

		slog.SetDefault(logger)
	})
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Throttle limits how often a hot-path log line is emitted.
// Frames arrive at camera rate, so per-frame debug output goes through one of these.
type Throttle struct {
	s rate.Sometimes
}

// NewThrottle allows at most one call per interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{s: rate.Sometimes{Interval: interval}}
}

// Do runs f if the interval has elapsed since the last run.
func (t *Throttle) Do(f func()) {
	t.s.Do(f)
}
