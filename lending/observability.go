package lending

import (
	"time"
)

// Logger interface for operational logging, warnings, and error reporting.
// It is dependency-free on purpose; adapters for slog and zap live in the
// obsadapters package, and any backend accepting alternating key/value args
// can implement it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting ledger performance and
// operational metrics. It follows the same dependency-free pattern as
// Logger; a Prometheus-backed implementation lives in obsadapters.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}
