// Package prommetrics exports waygraph metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c := prommetrics.New(reg, "game")
//	pf, _ := waygraph.New(func(o *waygraph.Options) { o.MetricsCollector = c })
package prommetrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/waygraph"
)

// Result label values of the search metrics.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultNoPath = "no_path"
	ResultError  = "error"
)

// Collector implements waygraph.MetricsCollector with Prometheus vectors.
type Collector struct {
	searchLatency *prometheus.HistogramVec
	searches      *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	batchMoves    *prometheus.CounterVec

	cacheEntries *prometheus.GaugeVec
	cacheHitRate *prometheus.GaugeVec
	memory       prometheus.Gauge
}

var _ waygraph.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg. namespace
// prefixes every metric name and may be empty.
func New(reg prometheus.Registerer, namespace string) *Collector {
	c := &Collector{
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "waygraph",
			Name:      "search_latency_seconds",
			Help:      "Latency of path searches",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"kind"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waygraph",
			Name:      "searches_total",
			Help:      "Path searches by kind and result",
		}, []string{"kind", "result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waygraph",
			Name:      "mutations_total",
			Help:      "Graph mutations by operation and status",
		}, []string{"op", "status"}),
		batchMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waygraph",
			Name:      "batch_moved_nodes_total",
			Help:      "Nodes submitted to batch moves",
		}, []string{"status"}),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "waygraph",
			Name:      "cache_entries",
			Help:      "Live cache entries",
		}, []string{"cache"}),
		cacheHitRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "waygraph",
			Name:      "cache_hit_ratio",
			Help:      "Cache hit ratio (0.0-1.0)",
		}, []string{"cache"}),
		memory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "waygraph",
			Name:      "reserved_bytes",
			Help:      "Bytes reserved for pre-allocated pools",
		}),
	}

	reg.MustRegister(
		c.searchLatency,
		c.searches,
		c.mutations,
		c.batchMoves,
		c.cacheEntries,
		c.cacheHitRate,
		c.memory,
	)
	return c
}

// RecordSearch implements waygraph.MetricsCollector.
func (c *Collector) RecordSearch(kind string, duration time.Duration, cached bool, err error) {
	c.searchLatency.WithLabelValues(kind).Observe(duration.Seconds())
	c.searches.WithLabelValues(kind, searchResult(cached, err)).Inc()
}

// RecordMutation implements waygraph.MetricsCollector.
func (c *Collector) RecordMutation(op string, _ time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.mutations.WithLabelValues(op, status).Inc()
}

// RecordBatchMove implements waygraph.MetricsCollector.
func (c *Collector) RecordBatchMove(count, failed int, _ time.Duration) {
	c.batchMoves.WithLabelValues("success").Add(float64(count - failed))
	c.batchMoves.WithLabelValues("error").Add(float64(failed))
}

// ObserveCacheStats sets the cache gauges from a snapshot.
func (c *Collector) ObserveCacheStats(s waygraph.CacheStats) {
	c.cacheEntries.WithLabelValues("path").Set(float64(s.Path.Entries))
	c.cacheEntries.WithLabelValues("distance").Set(float64(s.Distance.Entries))
	c.cacheHitRate.WithLabelValues("path").Set(float64(s.Path.HitRate) / 100)
	c.cacheHitRate.WithLabelValues("distance").Set(float64(s.Distance.HitRate) / 100)
}

// ObserveMemory sets the reserved memory gauge.
func (c *Collector) ObserveMemory(bytes int64) {
	c.memory.Set(float64(bytes))
}

func searchResult(cached bool, err error) string {
	switch {
	case err == nil && cached:
		return ResultHit
	case err == nil:
		return ResultMiss
	case errors.Is(err, waygraph.ErrNoPath):
		return ResultNoPath
	}
	return ResultError
}
