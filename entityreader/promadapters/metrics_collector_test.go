package promadapters_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/promadapters"
)

func gather(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	families, err := registry.Gather()
	require.NoError(t, err, "failed to gather metrics")

	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}

	require.Failf(t, "metric family not found", "name: %s", name)

	return nil
}

func labelsOf(metric *dto.Metric) map[string]string {
	labels := make(map[string]string)
	for _, pair := range metric.GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}

	return labels
}

func Test_MetricsCollector_RecordDuration_ObservesSeconds(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry, promadapters.WithDurationBuckets([]float64{0.1, 1}))
	labels := map[string]string{"operation": "read", "entity_kind": "node", "status": "success"}

	// act
	collector.RecordDuration("entityreader_read_duration_seconds", 250*time.Millisecond, labels)
	collector.RecordDuration("entityreader_read_duration_seconds", 50*time.Millisecond, labels)

	// assert
	family := gather(t, registry, "entityreader_read_duration_seconds")
	assert.Equal(t, dto.MetricType_HISTOGRAM, family.GetType())
	require.Len(t, family.GetMetric(), 1)

	metric := family.GetMetric()[0]
	assert.Equal(t, labels, labelsOf(metric))

	histogram := metric.GetHistogram()
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.InDelta(t, 0.3, histogram.GetSampleSum(), 1e-9)
	require.Len(t, histogram.GetBucket(), 2)
	assert.Equal(t, uint64(1), histogram.GetBucket()[0].GetCumulativeCount())
	assert.Equal(t, uint64(2), histogram.GetBucket()[1].GetCumulativeCount())
}

func Test_MetricsCollector_IncrementCounter_PerLabelValues(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("entityreader_errors_total", map[string]string{"status": "error", "error_type": "timeout"})
	collector.IncrementCounter("entityreader_errors_total", map[string]string{"status": "error", "error_type": "timeout"})
	collector.IncrementCounter("entityreader_errors_total", map[string]string{"status": "error", "error_type": "connectivity"})

	// assert
	family := gather(t, registry, "entityreader_errors_total")
	assert.Equal(t, dto.MetricType_COUNTER, family.GetType())

	byErrorType := make(map[string]float64)
	for _, metric := range family.GetMetric() {
		byErrorType[labelsOf(metric)["error_type"]] = metric.GetCounter().GetValue()
	}

	assert.Equal(t, map[string]float64{"timeout": 2, "connectivity": 1}, byErrorType)
}

func Test_MetricsCollector_RecordValue_SetsTheGauge(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)
	labels := map[string]string{"entity_kind": "segment"}

	// act
	collector.RecordValue("entityreader_entities_emitted", 120, labels)
	collector.RecordValue("entityreader_entities_emitted", 80, labels)

	// assert
	family := gather(t, registry, "entityreader_entities_emitted")
	assert.Equal(t, dto.MetricType_GAUGE, family.GetType())
	require.Len(t, family.GetMetric(), 1)
	assert.InDelta(t, 80.0, family.GetMetric()[0].GetGauge().GetValue(), 1e-9)
}

func Test_MetricsCollector_MapsLaterLabels_OntoTheFirstLabelNames(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("entityreader_errors_total", map[string]string{"status": "error", "error_type": "timeout"})
	collector.IncrementCounter("entityreader_errors_total", map[string]string{"status": "error", "extra": "dropped"})

	// assert
	family := gather(t, registry, "entityreader_errors_total")
	require.Len(t, family.GetMetric(), 2)

	for _, metric := range family.GetMetric() {
		labels := labelsOf(metric)
		assert.NotContains(t, labels, "extra")
		assert.Contains(t, labels, "error_type")
	}
}

func Test_MetricsCollector_ReusesCollectors_AlreadyRegisteredByAnotherInstance(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	first := promadapters.NewMetricsCollector(registry)
	second := promadapters.NewMetricsCollector(registry)
	labels := map[string]string{"status": "error", "error_type": "timeout"}

	// act
	first.IncrementCounter("entityreader_errors_total", labels)
	second.IncrementCounter("entityreader_errors_total", labels)

	// assert
	family := gather(t, registry, "entityreader_errors_total")
	require.Len(t, family.GetMetric(), 1)
	assert.InDelta(t, 2.0, family.GetMetric()[0].GetCounter().GetValue(), 1e-9)
}

func Test_MetricsCollector_DropsObservations_ForInvalidMetricNames(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act & assert
	assert.NotPanics(t, func() {
		collector.IncrementCounter("entityreader errors", map[string]string{"status": "error"})
	})

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func Test_MetricsCollector_DescribesEachReaderMetric_WithItsOwnHelpText(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)
	labels := map[string]string{"operation": "read", "entity_kind": "node", "status": "success"}

	// act
	collector.RecordDuration("entityreader_read_duration_seconds", time.Second, labels)
	collector.RecordValue("entityreader_entities_emitted", 3, labels)
	collector.RecordValue("entityreader_duplicates_suppressed", 1, labels)
	collector.IncrementCounter("entityreader_errors_total", labels)

	// assert
	assert.Equal(t, "Duration of snapshot read passes in seconds.",
		gather(t, registry, "entityreader_read_duration_seconds").GetHelp())
	assert.Equal(t, "Number of entities emitted by the last snapshot read pass.",
		gather(t, registry, "entityreader_entities_emitted").GetHelp())
	assert.Equal(t, "Number of exact-duplicate rows suppressed by the last snapshot read pass.",
		gather(t, registry, "entityreader_duplicates_suppressed").GetHelp())
	assert.Equal(t, "Count of failed snapshot read passes.",
		gather(t, registry, "entityreader_errors_total").GetHelp())
}

func Test_MetricsCollector_DerivesHelpText_ForUnknownMetrics(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("entityreader_rows_scanned_total", map[string]string{"entity_kind": "node"})
	collector.RecordValue("cursor_batches", 2, map[string]string{"entity_kind": "node"})

	// assert
	assert.Equal(t, "Rows scanned total (entityreader_rows_scanned_total).",
		gather(t, registry, "entityreader_rows_scanned_total").GetHelp())
	assert.Equal(t, "Cursor batches (cursor_batches).",
		gather(t, registry, "cursor_batches").GetHelp())
}

func Test_MetricsCollector_WithHelp_OverridesTheHelpText(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(
		registry,
		promadapters.WithHelp("entityreader_errors_total", "Failed nightly export reads."),
	)

	// act
	collector.IncrementCounter("entityreader_errors_total", map[string]string{"status": "error"})

	// assert
	assert.Equal(t, "Failed nightly export reads.", gather(t, registry, "entityreader_errors_total").GetHelp())
}
