//go:build unit

package metrics

import (
	"context"
	"testing"

	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestFactory(t *testing.T) (*MetricsFactory, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	factory, err := NewMetricsFactory(provider.Meter("test"), log.NewNop())
	require.NoError(t, err)

	return factory, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}

	return metricdata.Metrics{}, false
}

func TestNewMetricsFactoryRejectsNilMeter(t *testing.T) {
	t.Parallel()

	_, err := NewMetricsFactory(nil, log.NewNop())
	assert.ErrorIs(t, err, ErrNilMeter)
}

func TestCounterRecordsIncrements(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(MetricRetryAttempts)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, counter.AddOne(ctx))
	require.NoError(t, counter.Add(ctx, 2))

	m, found := findMetric(collect(t, reader), MetricRetryAttempts.Name)
	require.True(t, found)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestCounterWithLabels(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(MetricCircuitTransitions)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, counter.WithLabels(map[string]string{"service": "payments"}).AddOne(ctx))
	require.NoError(t, counter.WithLabels(map[string]string{"service": "ledger"}).AddOne(ctx))

	m, found := findMetric(collect(t, reader), MetricCircuitTransitions.Name)
	require.True(t, found)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)
}

func TestCounterWithLabelsDoesNotMutateBase(t *testing.T) {
	t.Parallel()

	factory, _ := newTestFactory(t)

	counter, err := factory.Counter(MetricRetryAttempts)
	require.NoError(t, err)

	labeled := counter.WithLabels(map[string]string{"service": "payments"})
	assert.NotSame(t, counter, labeled)
	assert.Empty(t, counter.attrs)
}

func TestCounterWithAttributes(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(MetricRetryExhaustions)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, counter.WithAttributes(attribute.String("outcome", "exhausted")).AddOne(ctx))

	m, found := findMetric(collect(t, reader), MetricRetryExhaustions.Name)
	require.True(t, found)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	value, defined := sum.DataPoints[0].Attributes.Value(attribute.Key("outcome"))
	require.True(t, defined)
	assert.Equal(t, "exhausted", value.AsString())
}

func TestHistogramRecords(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)

	histogram, err := factory.Histogram(MetricAttemptDuration)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, histogram.Record(ctx, 0.042))
	require.NoError(t, histogram.Record(ctx, 1.5))

	m, found := findMetric(collect(t, reader), MetricAttemptDuration.Name)
	require.True(t, found)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 1.542, hist.DataPoints[0].Sum, 0.0001)
}

func TestCounterInstrumentIsCached(t *testing.T) {
	t.Parallel()

	factory, _ := newTestFactory(t)

	first, err := factory.Counter(MetricRetryAttempts)
	require.NoError(t, err)

	second, err := factory.Counter(MetricRetryAttempts)
	require.NoError(t, err)

	assert.Equal(t, first.counter, second.counter)
}

func TestNopFactory(t *testing.T) {
	t.Parallel()

	factory := NewNopFactory()

	counter, err := factory.Counter(MetricRetryAttempts)
	require.NoError(t, err)
	require.NoError(t, counter.AddOne(context.Background()))

	histogram, err := factory.Histogram(MetricAttemptDuration)
	require.NoError(t, err)
	require.NoError(t, histogram.Record(context.Background(), 0.1))
}

func TestNilInstrumentErrors(t *testing.T) {
	t.Parallel()

	counter := &CounterBuilder{}
	assert.ErrorIs(t, counter.AddOne(context.Background()), ErrNilCounter)

	histogram := &HistogramBuilder{}
	assert.ErrorIs(t, histogram.Record(context.Background(), 1), ErrNilHistogram)
}
