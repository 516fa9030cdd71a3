// Package search coordinates concurrent workers over one search
// session: the shared stop flag and counters, the per-worker local
// state, and the worker pool that runs them.
package search

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"

	"github.com/hayabusa-engine/hayabusa/core"
)

// SharedState is the single coordination point of a search session.
// Every worker increments the node counters and polls the stop flag;
// the time manager, the fail-safe guard and the caller race to set it.
// Whoever wins the finalize token owns StopInfo.
//
// The hot atomics live on separate cache lines so worker increments do
// not false-share with the stop flag polled by everyone.
type SharedState struct {
	_      cpu.CacheLinePad
	nodes  atomic.Uint64
	_      cpu.CacheLinePad
	qnodes atomic.Uint64
	_      cpu.CacheLinePad

	stop      atomic.Bool
	finalized atomic.Bool
	_         cpu.CacheLinePad

	bestDepth     atomic.Int32
	pendingWork   atomic.Int64
	activeWorkers atomic.Int64
	_             cpu.CacheLinePad

	mu      sync.Mutex
	info    core.StopInfo
	best    Result
	hasBest bool
}

// NewSharedState returns a state ready for one search session.
func NewSharedState() *SharedState {
	return &SharedState{}
}

// Reset prepares the state for a new session.
func (s *SharedState) Reset() {
	s.nodes.Store(0)
	s.qnodes.Store(0)
	s.bestDepth.Store(0)
	s.pendingWork.Store(0)
	s.activeWorkers.Store(0)
	s.stop.Store(false)
	s.finalized.Store(false)
	s.mu.Lock()
	s.info = core.StopInfo{}
	s.best = Result{}
	s.hasBest = false
	s.mu.Unlock()
}

// AddNodes books a batch of visited nodes.
func (s *SharedState) AddNodes(n uint64) { s.nodes.Add(n) }

// AddQNodes books a batch of quiescence nodes.
func (s *SharedState) AddQNodes(n uint64) { s.qnodes.Add(n) }

// Nodes returns the total nodes visited so far.
func (s *SharedState) Nodes() uint64 { return s.nodes.Load() }

// QNodes returns the total quiescence nodes visited so far.
func (s *SharedState) QNodes() uint64 { return s.qnodes.Load() }

// ShouldStop reports whether the session must stop. This is the hot
// poll on every worker's path.
func (s *SharedState) ShouldStop() bool { return s.stop.Load() }

// StopWithInfo requests a stop and offers info as the reason. Only the
// first caller's info is kept; it reports whether this call won the
// finalize token. The stop flag is set either way, so losers still
// stop the workers.
func (s *SharedState) StopWithInfo(info core.StopInfo) bool {
	if !s.finalized.CompareAndSwap(false, true) {
		s.stop.Store(true)
		return false
	}
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
	// Info must be in place before anyone can observe the flag.
	s.stop.Store(true)
	return true
}

// StopInfo returns the recorded stop reason. Valid only after the
// session stopped; ok is false while the session is still running.
func (s *SharedState) StopInfo() (core.StopInfo, bool) {
	if !s.stop.Load() || !s.finalized.Load() {
		return core.StopInfo{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info, true
}

// UpdateBestDepth raises the deepest completed iteration. It never
// lowers it; concurrent workers race upward.
func (s *SharedState) UpdateBestDepth(depth int) {
	for {
		cur := s.bestDepth.Load()
		if int32(depth) <= cur {
			return
		}
		if s.bestDepth.CompareAndSwap(cur, int32(depth)) {
			return
		}
	}
}

// BestDepth returns the deepest completed iteration across workers.
func (s *SharedState) BestDepth() int { return int(s.bestDepth.Load()) }

// OfferResult publishes one worker's result. The deepest result wins;
// at equal depth the better value wins.
func (s *SharedState) OfferResult(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasBest || r.Better(s.best) {
		s.best = r
		s.hasBest = true
	}
}

// BestResult returns the best result offered so far.
func (s *SharedState) BestResult() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best, s.hasBest
}

// WorkQueued books a submitted job; WorkTaken books a worker picking
// one up; WorkerDone books it finishing.
func (s *SharedState) WorkQueued() { s.pendingWork.Add(1) }

// WorkTaken moves one unit of work from pending to active. Active
// rises before pending falls so a drain poll never sees both counters
// at zero while a job changes hands.
func (s *SharedState) WorkTaken() {
	s.activeWorkers.Add(1)
	s.pendingWork.Add(-1)
}

// WorkerDone books a worker finishing its job.
func (s *SharedState) WorkerDone() { s.activeWorkers.Add(-1) }

// WorkAbandoned unbooks a queued job that will never run, such as one
// still sitting in a pool queue when the pool closes.
func (s *SharedState) WorkAbandoned() { s.pendingWork.Add(-1) }

// PendingWork returns the number of submitted but not yet taken jobs.
func (s *SharedState) PendingWork() int { return int(s.pendingWork.Load()) }

// ActiveWorkers returns the number of workers currently searching.
func (s *SharedState) ActiveWorkers() int { return int(s.activeWorkers.Load()) }

// Drained reports whether no work is pending and no worker is active.
func (s *SharedState) Drained() bool {
	return s.pendingWork.Load() == 0 && s.activeWorkers.Load() == 0
}

// NPS computes nodes per second, normalizing a zero or sub-millisecond
// elapsed time so fresh sessions never divide by zero.
func NPS(nodes uint64, elapsed time.Duration) uint64 {
	if elapsed < time.Millisecond {
		elapsed = time.Millisecond
	}
	return uint64(float64(nodes) / elapsed.Seconds())
}
