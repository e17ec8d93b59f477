package auth

import (
	"log/slog"

	goerrors "github.com/goliatone/go-errors"
)

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts a slog.Logger to Logger
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// Slog exposes the wrapped logger so rich errors can be logged by severity
func (s *slogLogger) Slog() *slog.Logger { return s.l }

func defLogger() Logger {
	return NewSlogLogger(slog.Default().With("component", "auth"))
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger()
	}
	return l
}

// logRichError logs err through goerrors severity levels when the logger is
// slog backed, otherwise it falls back to Error.
func logRichError(logger Logger, msg string, err error) {
	var richErr *goerrors.Error
	if sl, ok := logger.(interface{ Slog() *slog.Logger }); ok && goerrors.As(err, &richErr) {
		goerrors.LogBySeverity(sl.Slog().With("msg_context", msg), richErr)
		return
	}
	logger.Error(msg, "error", err)
}
