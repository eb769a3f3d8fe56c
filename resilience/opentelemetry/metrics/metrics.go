package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/LerianStudio/lib-resilience/resilience/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MetricsFactory provides a thread-safe factory for creating and managing
// OpenTelemetry metrics with lazy initialization using sync.Map for
// high-performance concurrent access.
type MetricsFactory struct {
	meter      metric.Meter
	counters   sync.Map // string -> metric.Int64Counter
	histograms sync.Map // string -> metric.Float64Histogram
	logger     log.Logger
}

// ErrNilMeter indicates that a nil OTEL meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric represents a metric that can be collected by the library.
type Metric struct {
	Name        string
	Description string
	Unit        string
	// For histograms: bucket boundaries
	Buckets []float64
}

// Pre-configured metrics that can be used to create metrics with default options.
var (
	// MetricRetryAttempts counts every operation attempt started by the
	// retry executor, including the first.
	MetricRetryAttempts = Metric{
		Name:        "resilience_retry_attempts",
		Unit:        "1",
		Description: "Counts operation attempts started by the retry executor.",
	}

	// MetricRetryExhaustions counts executions that failed after the retry
	// budget was spent.
	MetricRetryExhaustions = Metric{
		Name:        "resilience_retry_exhaustions",
		Unit:        "1",
		Description: "Counts executions that exhausted their retry budget.",
	}

	// MetricCircuitTransitions counts circuit breaker state transitions.
	MetricCircuitTransitions = Metric{
		Name:        "resilience_circuitbreaker_transitions",
		Unit:        "1",
		Description: "Counts circuit breaker state transitions.",
	}

	// MetricAttemptDuration measures per-attempt wall time in seconds.
	MetricAttemptDuration = Metric{
		Name:        "resilience_attempt_duration_seconds",
		Unit:        "s",
		Description: "Measures the wall time of individual operation attempts.",
	}
)

// DefaultLatencyBuckets for latency measurements (in seconds).
var DefaultLatencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// NewMetricsFactory creates a new MetricsFactory instance.
func NewMetricsFactory(meter metric.Meter, logger log.Logger) (*MetricsFactory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	if logger == nil {
		logger = log.NewNop()
	}

	return &MetricsFactory{
		meter:  meter,
		logger: logger,
	}, nil
}

// NewNopFactory returns a MetricsFactory backed by OpenTelemetry's no-op meter.
// It is safe for use as a fallback when a real meter is unavailable.
func NewNopFactory() *MetricsFactory {
	return &MetricsFactory{
		meter:  noop.NewMeterProvider().Meter("nop"),
		logger: log.NewNop(),
	}
}

// Counter creates or retrieves a counter metric and returns a builder for fluent API usage.
func (f *MetricsFactory) Counter(m Metric) (*CounterBuilder, error) {
	counter, err := f.getOrCreateCounter(m)
	if err != nil {
		return nil, err
	}

	return &CounterBuilder{
		factory: f,
		counter: counter,
		name:    m.Name,
	}, nil
}

// Histogram creates or retrieves a histogram metric and returns a builder for fluent API usage.
func (f *MetricsFactory) Histogram(m Metric) (*HistogramBuilder, error) {
	if m.Buckets == nil {
		m.Buckets = DefaultLatencyBuckets
	}

	histogram, err := f.getOrCreateHistogram(m)
	if err != nil {
		return nil, err
	}

	return &HistogramBuilder{
		factory:   f,
		histogram: histogram,
		name:      m.Name,
	}, nil
}

// getOrCreateCounter lazily creates or retrieves an existing counter.
func (f *MetricsFactory) getOrCreateCounter(m Metric) (metric.Int64Counter, error) {
	if counter, exists := f.counters.Load(m.Name); exists {
		if c, ok := counter.(metric.Int64Counter); ok {
			return c, nil
		}

		return nil, fmt.Errorf("counter cache contains invalid type for %q", m.Name)
	}

	counter, err := f.meter.Int64Counter(m.Name,
		metric.WithDescription(m.Description),
		metric.WithUnit(m.Unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %q: %w", m.Name, err)
	}

	actual, _ := f.counters.LoadOrStore(m.Name, counter)
	if c, ok := actual.(metric.Int64Counter); ok {
		return c, nil
	}

	return nil, fmt.Errorf("counter cache contains invalid type for %q", m.Name)
}

// getOrCreateHistogram lazily creates or retrieves an existing histogram.
func (f *MetricsFactory) getOrCreateHistogram(m Metric) (metric.Float64Histogram, error) {
	if histogram, exists := f.histograms.Load(m.Name); exists {
		if h, ok := histogram.(metric.Float64Histogram); ok {
			return h, nil
		}

		return nil, fmt.Errorf("histogram cache contains invalid type for %q", m.Name)
	}

	histogram, err := f.meter.Float64Histogram(m.Name,
		metric.WithDescription(m.Description),
		metric.WithUnit(m.Unit),
		metric.WithExplicitBucketBoundaries(m.Buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %q: %w", m.Name, err)
	}

	actual, _ := f.histograms.LoadOrStore(m.Name, histogram)
	if h, ok := actual.(metric.Float64Histogram); ok {
		return h, nil
	}

	return nil, fmt.Errorf("histogram cache contains invalid type for %q", m.Name)
}
