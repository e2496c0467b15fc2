package waygraph

import (
	"sync/atomic"
	"time"
)

// Search kinds reported to MetricsCollector.RecordSearch.
const (
	SearchNode      = "node"
	SearchProjected = "projected"
	SearchExit      = "exit"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// prommetrics provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordSearch is called after each search. kind is one of SearchNode,
	// SearchProjected or SearchExit; cached reports a path cache hit.
	RecordSearch(kind string, duration time.Duration, cached bool, err error)

	// RecordMutation is called after each node or edge mutation. op names
	// the operation, e.g. "add_node" or "remove_edge".
	RecordMutation(op string, duration time.Duration, err error)

	// RecordBatchMove is called after each MoveNodes call.
	RecordBatchMove(count, failed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(string, time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordMutation(string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordBatchMove(int, int, time.Duration)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchCacheHits  atomic.Int64
	SearchTotalNanos atomic.Int64
	NoPathCount      atomic.Int64
	MutationCount    atomic.Int64
	MutationErrors   atomic.Int64
	BatchMoveCount   atomic.Int64
	BatchMoveNodes   atomic.Int64
	BatchMoveFailed  atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(kind string, duration time.Duration, cached bool, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if cached {
		b.SearchCacheHits.Add(1)
	}
	if err != nil {
		b.SearchErrors.Add(1)
		if StatusOf(err) == StatusNoPath {
			b.NoPathCount.Add(1)
		}
	}
}

// RecordMutation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMutation(op string, duration time.Duration, err error) {
	b.MutationCount.Add(1)
	if err != nil {
		b.MutationErrors.Add(1)
	}
}

// RecordBatchMove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchMove(count, failed int, duration time.Duration) {
	b.BatchMoveCount.Add(1)
	b.BatchMoveNodes.Add(int64(count))
	b.BatchMoveFailed.Add(int64(failed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchCacheHits: b.SearchCacheHits.Load(),
		SearchAvgNanos:  b.getAvgSearchNanos(),
		NoPathCount:     b.NoPathCount.Load(),
		MutationCount:   b.MutationCount.Load(),
		MutationErrors:  b.MutationErrors.Load(),
		BatchMoveCount:  b.BatchMoveCount.Load(),
		BatchMoveNodes:  b.BatchMoveNodes.Load(),
		BatchMoveFailed: b.BatchMoveFailed.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SearchCount     int64
	SearchErrors    int64
	SearchCacheHits int64
	SearchAvgNanos  int64
	NoPathCount     int64
	MutationCount   int64
	MutationErrors  int64
	BatchMoveCount  int64
	BatchMoveNodes  int64
	BatchMoveFailed int64
}
