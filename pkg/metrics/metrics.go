// Package metrics exposes Prometheus collectors for page and block traffic.
//
// # Basic Usage
//
//	m := metrics.Default()
//	timer := metrics.NewTimer("serialize")
//	// ... encode a page ...
//	m.ObservePage(metrics.DirectionSerialize, "lz4", uncompressed, onWire, timer.Stop())
//
// A nil *PageMetrics is valid and records nothing, which is how metrics are
// disabled.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Direction labels whether a page was written or read.
type Direction string

const (
	DirectionSerialize   Direction = "serialize"
	DirectionDeserialize Direction = "deserialize"
)

// PageMetrics groups the collectors updated by the page codec.
type PageMetrics struct {
	pages     *prometheus.CounterVec
	bytes     *prometheus.CounterVec
	positions *prometheus.CounterVec
	blocks    *prometheus.CounterVec
	failures  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	ratio     prometheus.Histogram
}

// NewPageMetrics registers the page collectors with reg.
func NewPageMetrics(reg prometheus.Registerer) *PageMetrics {
	factory := promauto.With(reg)
	return &PageMetrics{
		pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nebula_blocks_pages_total",
				Help: "Pages serialized or deserialized",
			},
			[]string{"direction", "compression"},
		),
		bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nebula_blocks_page_bytes_total",
				Help: "Page body bytes before compression and on the wire",
			},
			[]string{"direction", "form"},
		),
		positions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nebula_blocks_page_positions_total",
				Help: "Positions carried by pages",
			},
			[]string{"direction"},
		),
		blocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nebula_blocks_channels_total",
				Help: "Top-level blocks by encoding",
			},
			[]string{"direction", "encoding"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nebula_blocks_page_failures_total",
				Help: "Page encode or decode failures by error type",
			},
			[]string{"direction", "type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "nebula_blocks_page_latency_seconds",
				Help: "Time to serialize or deserialize one page",
				Buckets: []float64{
					1e-6, // 1μs
					1e-5, // 10μs
					1e-4, // 100μs
					1e-3, // 1ms
					1e-2, // 10ms
					1e-1, // 100ms
					1,
				},
			},
			[]string{"direction"},
		),
		ratio: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nebula_blocks_page_compression_ratio",
				Help:    "Wire size divided by uncompressed size for compressed pages",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
	}
}

var (
	defaultOnce    sync.Once
	defaultMetrics *PageMetrics
)

// Default returns page metrics registered with the global Prometheus
// registry. It is created once.
func Default() *PageMetrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewPageMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// ObservePage records one page. compression is the algorithm actually
// applied, or "none".
func (m *PageMetrics) ObservePage(dir Direction, compression string, positions, uncompressed, onWire int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(string(dir), compression).Inc()
	m.positions.WithLabelValues(string(dir)).Add(float64(positions))
	m.bytes.WithLabelValues(string(dir), "uncompressed").Add(float64(uncompressed))
	m.bytes.WithLabelValues(string(dir), "wire").Add(float64(onWire))
	m.latency.WithLabelValues(string(dir)).Observe(elapsed.Seconds())
	if compression != "none" && uncompressed > 0 {
		m.ratio.Observe(float64(onWire) / float64(uncompressed))
	}
}

// ObserveBlock counts one top-level block by encoding tag.
func (m *PageMetrics) ObserveBlock(dir Direction, encoding string) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(string(dir), encoding).Inc()
}

// ObserveFailure counts a failed page operation by error type.
func (m *PageMetrics) ObserveFailure(dir Direction, errType string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(dir), errType).Inc()
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It may be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
