package obsadapters

import (
	"log/slog"

	"github.com/openshelf/lending-ledger-go/lending"
)

// SlogLogger implements lending.Logger using Go's standard log/slog package.
// The alternating key/value args of the lending.Logger interface pass through
// unchanged, so slog.Attr values work as well as plain key/value pairs.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new logger adapter around the given slog logger.
// A nil logger falls back to slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &SlogLogger{logger: logger}
}

// Debug logs a debug message.
func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info logs an info message.
func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs a warning message.
func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error message.
func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Ensure SlogLogger implements lending.Logger.
var _ lending.Logger = (*SlogLogger)(nil)
