package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// slog has no trace or fatal level; these sit one step beyond debug and error.
const (
	SlogLevelTrace = slog.Level(-8)
	SlogLevelFatal = slog.Level(12)
)

// SlogLogger implements Logger on top of a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

var _ Logger = (*SlogLogger)(nil)

// NewSlog wraps l. A nil l uses slog.Default().
func NewSlog(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

// NewOTel returns a logger that emits through the OpenTelemetry slog bridge,
// using the global LoggerProvider and name as the instrumentation scope.
func NewOTel(name string) *SlogLogger {
	return &SlogLogger{logger: otelslog.NewLogger(name)}
}

// Slog returns the underlying *slog.Logger.
func (l *SlogLogger) Slog() *slog.Logger {
	return l.logger
}

func (l *SlogLogger) Trace(msg string, args ...any) { l.log(SlogLevelTrace, msg, args) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *SlogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }
func (l *SlogLogger) Fatal(msg string, args ...any) { l.log(SlogLevelFatal, msg, args) }

func (l *SlogLogger) log(level slog.Level, msg string, args []any) {
	l.logger.Log(context.Background(), level, msg, args...)
}
