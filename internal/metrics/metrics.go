// Package metrics exposes the Prometheus instrumentation for one indexing
// pipeline: how many chunks got embedded, how long batches took, and
// whether the embedding provider's circuit breaker is currently open.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "codeindex"

// Metrics holds the counters and histograms the pipeline reports. A nil
// *Metrics is valid everywhere it's passed and every method on it is a
// no-op, so callers that don't want instrumentation (tests, `off` mode)
// never need a stub implementation.
type Metrics struct {
	Registry *prometheus.Registry

	ChunksEmbeddedTotal *prometheus.CounterVec
	ChunksCreatedTotal  prometheus.Counter
	FilesProcessedTotal *prometheus.CounterVec
	BatchDuration       *prometheus.HistogramVec
	BatchErrorsTotal    *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
	CacheLookupsTotal   *prometheus.CounterVec
}

// New builds a fresh registry and registers the pipeline's metrics against
// it. Each Indexer gets its own Metrics/Registry pair rather than sharing
// the global default registry, so opening several indexers in one process
// (as the test suite does) never collides over an already-registered name.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ChunksEmbeddedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_embedded_total",
			Help:      "Chunks successfully embedded, by provider and model.",
		}, []string{"provider", "model"}),
		ChunksCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_created_total",
			Help:      "Chunks produced by parsing and splitting, across all runs.",
		}),
		FilesProcessedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Files that completed the pipeline, by change type (full, incremental).",
		}, []string{"change_type"}),
		BatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time spent embedding one batch of chunks, including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"provider", "model"}),
		BatchErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_errors_total",
			Help:      "Batches that failed, by kind (transient, permanent, cancelled, store_failed).",
		}, []string{"kind"}),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Embedding provider circuit breaker state: 0=closed, 1=half-open, 2=open.",
		}, []string{"provider"}),
		CacheLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Embedding cache lookups, by outcome (hit, miss).",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveBatch(provider, model string, succeeded int, d time.Duration) {
	if m == nil {
		return
	}
	m.ChunksEmbeddedTotal.WithLabelValues(provider, model).Add(float64(succeeded))
	m.BatchDuration.WithLabelValues(provider, model).Observe(d.Seconds())
}

func (m *Metrics) RecordBatchError(kind string) {
	if m == nil {
		return
	}
	m.BatchErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordChunksCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ChunksCreatedTotal.Add(float64(n))
}

func (m *Metrics) RecordFilesProcessed(changeType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FilesProcessedTotal.WithLabelValues(changeType).Add(float64(n))
}

// SetCircuitBreakerState records gobreaker's State as the numeric gauge
// value its string form sorts by: closed < half-open < open.
func (m *Metrics) SetCircuitBreakerState(provider string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(provider).Set(float64(state))
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(outcome).Inc()
}
