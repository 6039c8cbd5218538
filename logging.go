package stratumflow

import (
	"log/slog"
	"os"
)

// SLogger abstracts the logging behavior the scheduler needs. Modeled on
// bassosimone/nop's SLogger: a narrow interface so callers can plug in a
// *slog.Logger, a test double, or a no-op, without the scheduler importing
// a concrete logging implementation.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultSLogger returns a no-op logger. Following this corpus's library
// convention, stratumflow never writes to stdout/stderr unless a logger is
// explicitly configured via WithLogger.
func DefaultSLogger() SLogger { return discardSLogger{} }

type discardSLogger struct{}

func (discardSLogger) Debug(string, ...any) {}
func (discardSLogger) Info(string, ...any)  {}
func (discardSLogger) Warn(string, ...any)  {}
func (discardSLogger) Error(string, ...any) {}

// slogAdapter wraps a *slog.Logger to satisfy SLogger.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogLogger wraps an *slog.Logger as an SLogger. Pass nil to get a
// JSON-to-stderr logger at Info level, matching divinesense's
// NewLogger default.
func NewSlogLogger(l *slog.Logger) SLogger {
	if l == nil {
		l = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slogAdapter{l: l}
}

func (s slogAdapter) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogAdapter) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogAdapter) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogAdapter) Error(msg string, args ...any) { s.l.Error(msg, args...) }
