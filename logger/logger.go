// Package logger defines the logging capability instrumented calls report to.
//
// Payloads follow the log/slog convention: a message followed by alternating
// key/value pairs. Any structured logger can be plugged in by implementing
// Logger; NewSlog adapts a *slog.Logger, NewOTel exports through the
// OpenTelemetry log bridge, NewConsole prints to the standard streams and Noop
// discards everything.
package logger

import (
	"fmt"
	"strings"
)

// Logger receives log lines at six severities.
//
// Fatal is a severity only. Implementations must not exit the process.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
}

// Level is a log severity.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel converts a level name such as "info" or "WARN" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Log dispatches msg to the method of l matching level.
// Unknown levels are logged at info.
func Log(l Logger, level Level, msg string, args ...any) {
	if l == nil {
		return
	}
	switch level {
	case LevelTrace:
		l.Trace(msg, args...)
	case LevelDebug:
		l.Debug(msg, args...)
	case LevelWarn:
		l.Warn(msg, args...)
	case LevelError:
		l.Error(msg, args...)
	case LevelFatal:
		l.Fatal(msg, args...)
	default:
		l.Info(msg, args...)
	}
}
