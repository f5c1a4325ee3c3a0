// Package obsadapters provides ready-made adapters for the lending observability interfaces.
// These adapters enable plug-and-play logging and metrics with common backends
// for users who do not want to implement the interfaces themselves.
package obsadapters

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshelf/lending-ledger-go/lending"
)

// PrometheusMetrics implements lending.MetricsCollector using the Prometheus
// client library. It maps the metrics interface to Prometheus collectors:
//   - RecordDuration -> HistogramVec (for measuring operation durations)
//   - IncrementCounter -> CounterVec (for counting operations and errors)
//   - RecordValue -> GaugeVec (for current values like active loans)
//
// Collectors are created and registered on demand the first time a metric
// name is recorded; the label keys of that first observation fix the label
// schema for the name. Observations with a different label set for the same
// name are dropped instead of panicking inside the caller.
type PrometheusMetrics struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new Prometheus metrics collector that
// registers its collectors with the given registerer.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PrometheusMetrics{
		registerer: registerer,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// RecordDuration records a duration measurement using a Prometheus histogram.
// Durations are observed in seconds following the Prometheus convention.
func (m *PrometheusMetrics) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	vec := m.getOrCreateHistogram(metricName, labels)
	if vec == nil {
		return
	}

	histogram, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	histogram.Observe(duration.Seconds())
}

// IncrementCounter increments a counter using a Prometheus counter.
// Counters are monotonically increasing and ideal for counting operations,
// errors, and other event occurrences.
func (m *PrometheusMetrics) IncrementCounter(metricName string, labels map[string]string) {
	vec := m.getOrCreateCounter(metricName, labels)
	if vec == nil {
		return
	}

	counter, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	counter.Inc()
}

// RecordValue records a float64 value using a Prometheus gauge.
// Gauges represent current values that can go up or down, such as
// the number of loans currently out.
func (m *PrometheusMetrics) RecordValue(metricName string, value float64, labels map[string]string) {
	vec := m.getOrCreateGauge(metricName, labels)
	if vec == nil {
		return
	}

	gauge, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	gauge.Set(value)
}

// getOrCreateHistogram gets an existing histogram vec or creates and
// registers a new one keyed by the metric name.
func (m *PrometheusMetrics) getOrCreateHistogram(name string, labels map[string]string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.histograms[name]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Lending operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, labelKeys(labels))

	registered, ok := m.registerCollector(histogram)
	if !ok {
		return nil
	}

	if existing, isVec := registered.(*prometheus.HistogramVec); isVec {
		histogram = existing
	}

	m.histograms[name] = histogram

	return histogram
}

// getOrCreateCounter gets an existing counter vec or creates and registers
// a new one keyed by the metric name.
func (m *PrometheusMetrics) getOrCreateCounter(name string, labels map[string]string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[name]; exists {
		return counter
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Lending operation counter",
	}, labelKeys(labels))

	registered, ok := m.registerCollector(counter)
	if !ok {
		return nil
	}

	if existing, isVec := registered.(*prometheus.CounterVec); isVec {
		counter = existing
	}

	m.counters[name] = counter

	return counter
}

// getOrCreateGauge gets an existing gauge vec or creates and registers
// a new one keyed by the metric name.
func (m *PrometheusMetrics) getOrCreateGauge(name string, labels map[string]string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, exists := m.gauges[name]; exists {
		return gauge
	}

	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "Lending current value",
	}, labelKeys(labels))

	registered, ok := m.registerCollector(gauge)
	if !ok {
		return nil
	}

	if existing, isVec := registered.(*prometheus.GaugeVec); isVec {
		gauge = existing
	}

	m.gauges[name] = gauge

	return gauge
}

// registerCollector registers a collector with the configured registerer.
// When the registerer already holds a collector for the same metric the
// existing one is returned, so several adapters can share one registry.
func (m *PrometheusMetrics) registerCollector(collector prometheus.Collector) (prometheus.Collector, bool) {
	err := m.registerer.Register(collector)
	if err == nil {
		return collector, true
	}

	already := prometheus.AlreadyRegisteredError{}
	if errors.As(err, &already) {
		return already.ExistingCollector, true
	}

	return nil, false
}

// labelKeys returns the sorted label keys of an observation; the keys of the
// first observation for a metric name become its fixed label schema.
func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Ensure PrometheusMetrics implements lending.MetricsCollector.
var _ lending.MetricsCollector = (*PrometheusMetrics)(nil)
