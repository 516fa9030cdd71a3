package search

import (
	"sync/atomic"
	"time"

	"github.com/hayabusa-engine/hayabusa/clock"
	"github.com/hayabusa-engine/hayabusa/core"
)

// Limits bounds one search session. The zero value searches forever;
// callers set the fields they care about.
type Limits struct {
	// Control is the clock for this move.
	Control clock.Control

	// Depth caps iterative deepening. Zero means unlimited.
	Depth int

	// Nodes caps the shared node count. Zero means unlimited.
	Nodes uint64

	// ExternalStop, when non-nil, lets the caller stop the session by
	// setting the flag. It is polled alongside the clock.
	ExternalStop *atomic.Bool

	// NodeSink and QNodeSink, when non-nil, mirror the shared counters
	// so an outer protocol layer can watch progress without holding a
	// handle to the session. Updates are periodic, not per node.
	NodeSink  *atomic.Uint64
	QNodeSink *atomic.Uint64

	// MoveOverhead is the per-move communication cost subtracted from
	// every time budget.
	MoveOverhead time.Duration

	// SessionID distinguishes sessions for worker seeding, so repeated
	// searches of the same position do not replay the same jitter.
	SessionID uint64
}

// ExternalStopped reports whether the caller requested a stop.
func (l Limits) ExternalStopped() bool {
	return l.ExternalStop != nil && l.ExternalStop.Load()
}

// MaxDepth returns the effective depth cap.
func (l Limits) MaxDepth() int {
	if l.Depth <= 0 || l.Depth > core.MaxPly {
		return core.MaxPly
	}
	return l.Depth
}
