package hayabusa

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational
// metrics. Implement this interface to integrate with monitoring
// systems like Prometheus.
type MetricsCollector interface {
	// RecordSearch is called after each search session. depth is the
	// deepest completed iteration, nodes the total visited, duration
	// the wall time of the session.
	RecordSearch(depth int, nodes uint64, duration time.Duration)

	// RecordStop is called once per session with the reason that ended
	// it and whether the hard limit was crossed.
	RecordStop(reason string, hardTimeout bool)

	// RecordTableLoad is called after each session with the permille
	// occupancy of the transposition table.
	RecordTableLoad(permille int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(int, uint64, time.Duration) {}
func (NoopMetricsCollector) RecordStop(string, bool)                {}
func (NoopMetricsCollector) RecordTableLoad(int)                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external
// dependencies.
type BasicMetricsCollector struct {
	SearchCount      atomic.Int64
	SearchTotalNanos atomic.Int64
	NodesTotal       atomic.Int64
	DeepestIteration atomic.Int64
	HardTimeouts     atomic.Int64
	LastTableLoad    atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(depth int, nodes uint64, duration time.Duration) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	b.NodesTotal.Add(int64(nodes))
	for {
		cur := b.DeepestIteration.Load()
		if int64(depth) <= cur {
			break
		}
		if b.DeepestIteration.CompareAndSwap(cur, int64(depth)) {
			break
		}
	}
}

// RecordStop implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStop(_ string, hardTimeout bool) {
	if hardTimeout {
		b.HardTimeouts.Add(1)
	}
}

// RecordTableLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTableLoad(permille int) {
	b.LastTableLoad.Store(int64(permille))
}

// AverageSearchDuration returns the mean session duration so far.
func (b *BasicMetricsCollector) AverageSearchDuration() time.Duration {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(b.SearchTotalNanos.Load() / count)
}
