package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPageMetrics(reg)

	m.ObservePage(DirectionSerialize, "zstd", 100, 4000, 1000, time.Millisecond)
	m.ObservePage(DirectionSerialize, "none", 10, 200, 200, time.Microsecond)
	m.ObservePage(DirectionDeserialize, "zstd", 100, 4000, 1000, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pages.WithLabelValues("serialize", "zstd")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pages.WithLabelValues("serialize", "none")))
	assert.Equal(t, 110.0, testutil.ToFloat64(m.positions.WithLabelValues("serialize")))
	assert.Equal(t, 4200.0, testutil.ToFloat64(m.bytes.WithLabelValues("serialize", "uncompressed")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(m.bytes.WithLabelValues("serialize", "wire")))

	count, err := testutil.GatherAndCount(reg, "nebula_blocks_page_compression_ratio")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestObserveBlocksAndFailures(t *testing.T) {
	m := NewPageMetrics(prometheus.NewRegistry())
	m.ObserveBlock(DirectionSerialize, "ARRAY")
	m.ObserveBlock(DirectionSerialize, "ARRAY")
	m.ObserveFailure(DirectionDeserialize, "corrupt_data")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.blocks.WithLabelValues("serialize", "ARRAY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("deserialize", "corrupt_data")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *PageMetrics
	assert.NotPanics(t, func() {
		m.ObservePage(DirectionSerialize, "none", 1, 1, 1, time.Second)
		m.ObserveBlock(DirectionSerialize, "RLE")
		m.ObserveFailure(DirectionSerialize, "internal")
	})
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestTimer(t *testing.T) {
	timer := NewTimer("page")
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), time.Millisecond)
	assert.Equal(t, "page", timer.Name())
}
