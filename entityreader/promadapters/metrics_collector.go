package promadapters

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

var _ entityreader.MetricsCollector = (*MetricsCollector)(nil)

// Option defines a functional option for configuring a MetricsCollector.
type Option func(*MetricsCollector)

// WithDurationBuckets sets the histogram buckets used for durations, in seconds.
func WithDurationBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		if len(buckets) > 0 {
			m.durationBuckets = buckets
		}
	}
}

// WithHelp sets the help text of a metric, replacing the built-in text for the reader's metrics
// or the text derived from the metric name.
func WithHelp(metric string, help string) Option {
	return func(m *MetricsCollector) {
		if help != "" {
			m.help[metric] = help
		}
	}
}

const helpPrefixToTrim = "entityreader_"

var defaultHelp = map[string]string{
	"entityreader_read_duration_seconds": "Duration of snapshot read passes in seconds.",
	"entityreader_entities_emitted":      "Number of entities emitted by the last snapshot read pass.",
	"entityreader_duplicates_suppressed": "Number of exact-duplicate rows suppressed by the last snapshot read pass.",
	"entityreader_errors_total":          "Count of failed snapshot read passes.",
}

// MetricsCollector implements entityreader.MetricsCollector with Prometheus vectors:
//   - RecordDuration -> HistogramVec in seconds
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// A vector is registered on first use of a metric name, with the sorted label names of that first call.
// Later calls map their labels onto these names: missing labels are observed as empty values, extra
// labels are dropped. If the registerer already holds a compatible collector, that one is reused.
type MetricsCollector struct {
	registerer      prometheus.Registerer
	durationBuckets []float64
	help            map[string]string
	mu              sync.Mutex
	histograms      map[string]*labeledVec[*prometheus.HistogramVec]
	counters        map[string]*labeledVec[*prometheus.CounterVec]
	gauges          map[string]*labeledVec[*prometheus.GaugeVec]
}

type labeledVec[V prometheus.Collector] struct {
	vec        V
	labelNames []string
}

func (v *labeledVec[V]) values(labels map[string]string) []string {
	values := make([]string, len(v.labelNames))
	for i, name := range v.labelNames {
		values[i] = labels[name]
	}

	return values
}

// NewMetricsCollector creates a metrics collector that registers its vectors with registerer.
// A nil registerer means prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer, options ...Option) *MetricsCollector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &MetricsCollector{
		registerer:      registerer,
		durationBuckets: prometheus.DefBuckets,
		help:            maps.Clone(defaultHelp),
		histograms:      make(map[string]*labeledVec[*prometheus.HistogramVec]),
		counters:        make(map[string]*labeledVec[*prometheus.CounterVec]),
		gauges:          make(map[string]*labeledVec[*prometheus.GaugeVec]),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	histogram, ok := m.histogram(metric, labels)
	if !ok {
		return
	}

	histogram.vec.WithLabelValues(histogram.values(labels)...).Observe(duration.Seconds())
}

func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	counter, ok := m.counter(metric, labels)
	if !ok {
		return
	}

	counter.vec.WithLabelValues(counter.values(labels)...).Inc()
}

func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	gauge, ok := m.gauge(metric, labels)
	if !ok {
		return
	}

	gauge.vec.WithLabelValues(gauge.values(labels)...).Set(value)
}

func (m *MetricsCollector) histogram(name string, labels map[string]string) (*labeledVec[*prometheus.HistogramVec], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.histograms[name]; exists {
		return histogram, true
	}

	labelNames := sortedLabelNames(labels)
	vec, ok := register(m.registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    m.helpFor(name),
			Buckets: m.durationBuckets,
		},
		labelNames,
	))
	if !ok {
		return nil, false
	}

	histogram := &labeledVec[*prometheus.HistogramVec]{vec: vec, labelNames: labelNames}
	m.histograms[name] = histogram

	return histogram, true
}

func (m *MetricsCollector) counter(name string, labels map[string]string) (*labeledVec[*prometheus.CounterVec], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[name]; exists {
		return counter, true
	}

	labelNames := sortedLabelNames(labels)
	vec, ok := register(m.registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: m.helpFor(name),
		},
		labelNames,
	))
	if !ok {
		return nil, false
	}

	counter := &labeledVec[*prometheus.CounterVec]{vec: vec, labelNames: labelNames}
	m.counters[name] = counter

	return counter, true
}

func (m *MetricsCollector) gauge(name string, labels map[string]string) (*labeledVec[*prometheus.GaugeVec], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, exists := m.gauges[name]; exists {
		return gauge, true
	}

	labelNames := sortedLabelNames(labels)
	vec, ok := register(m.registerer, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: m.helpFor(name),
		},
		labelNames,
	))
	if !ok {
		return nil, false
	}

	gauge := &labeledVec[*prometheus.GaugeVec]{vec: vec, labelNames: labelNames}
	m.gauges[name] = gauge

	return gauge, true
}

// helpFor returns the configured help text of a metric. Unknown metrics get a text derived from
// their name, e.g. "entityreader_rows_scanned_total" -> "Rows scanned total (entityreader_rows_scanned_total)."
func (m *MetricsCollector) helpFor(name string) string {
	if help, ok := m.help[name]; ok {
		return help
	}

	words := strings.TrimPrefix(name, helpPrefixToTrim)
	words = strings.TrimSpace(strings.ReplaceAll(words, "_", " "))
	if words == "" {
		return name
	}

	return strings.ToUpper(words[:1]) + words[1:] + " (" + name + ")."
}

// register registers vec or returns the compatible collector that is already registered.
// ok is false if the registerer rejects vec, for example for an invalid metric name.
func register[V prometheus.Collector](registerer prometheus.Registerer, vec V) (V, bool) {
	err := registerer.Register(vec)
	if err == nil {
		return vec, true
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(V); ok {
			return existing, true
		}
	}

	var zero V

	return zero, false
}

func sortedLabelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
