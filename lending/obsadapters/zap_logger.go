package obsadapters

import (
	"go.uber.org/zap"

	"github.com/openshelf/lending-ledger-go/lending"
)

// ZapLogger implements lending.Logger using Uber's zap logger.
// It logs through the sugared API so the alternating key/value args of the
// lending.Logger interface map directly onto zap's loosely typed context.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger creates a new logger adapter around the given zap logger.
// A nil logger falls back to zap.NewNop(), which discards all output.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ZapLogger{logger: logger.Sugar()}
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, args ...any) {
	l.logger.Debugw(msg, args...)
}

// Info logs an info message.
func (l *ZapLogger) Info(msg string, args ...any) {
	l.logger.Infow(msg, args...)
}

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, args ...any) {
	l.logger.Warnw(msg, args...)
}

// Error logs an error message.
func (l *ZapLogger) Error(msg string, args ...any) {
	l.logger.Errorw(msg, args...)
}

// Ensure ZapLogger implements lending.Logger.
var _ lending.Logger = (*ZapLogger)(nil)
