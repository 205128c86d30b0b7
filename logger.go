package filesession

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log levels accepted by NewLogger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger is the diagnostic sink a Session reports to. A nil Logger
// suppresses all diagnostics.
type Logger interface {
	Debug(msg string)
	Warning(msg string)
	Error(msg string)
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts a *slog.Logger to the Logger interface.
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogLogger{l: l.With(slog.String("component", "filesession"))}
}

// NewLogger returns a Logger writing JSON records to w at the given level
// (DEBUG, INFO, WARN or ERROR; anything else means INFO).
func NewLogger(w io.Writer, level string) Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return NewSlogLogger(slog.New(h))
}

func (s *slogLogger) Debug(msg string) {
	s.l.Log(context.Background(), slog.LevelDebug, msg)
}

func (s *slogLogger) Warning(msg string) {
	s.l.Log(context.Background(), slog.LevelWarn, msg)
}

func (s *slogLogger) Error(msg string) {
	s.l.Log(context.Background(), slog.LevelError, msg)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopLogger struct{}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string)   {}
func (nopLogger) Warning(string) {}
func (nopLogger) Error(string)   {}

func (s *Session) debugf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(fmt.Sprintf(format, args...))
	}
}

func (s *Session) warnf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warning(fmt.Sprintf(format, args...))
	}
}

func (s *Session) errorf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Error(fmt.Sprintf(format, args...))
	}
}
