// Package testutil provides stub game types for tests. The stubs carry
// just enough state to drive the coordination machinery; they do not
// implement a real game.
package testutil

import (
	"time"

	"github.com/hayabusa-engine/hayabusa/core"
	"github.com/hayabusa-engine/hayabusa/search"
)

// Board is a minimal core.Position: a hash, a side to move, and an
// optional move validator.
type Board struct {
	Key   uint64
	Side  core.Color
	Valid func(core.Move) bool
}

// NewBoard returns a board with the given hash, black to move, and
// every move valid.
func NewBoard(key uint64) *Board {
	return &Board{Key: key}
}

// Hash implements core.Position.
func (b *Board) Hash() uint64 { return b.Key }

// SideToMove implements core.Position.
func (b *Board) SideToMove() core.Color { return b.Side }

// ValidateMove implements core.Position.
func (b *Board) ValidateMove(mv core.Move) bool {
	if b.Valid == nil {
		return true
	}
	return b.Valid(mv)
}

// Clone implements core.Position.
func (b *Board) Clone() core.Position {
	c := *b
	return &c
}

// SpinSearcher is a search.Searcher that burns nodes until the shared
// stop flag fires, reporting one iteration per Interval. Use it to
// test stop propagation and drain behavior.
type SpinSearcher struct {
	// Interval is how long one fake deepening iteration takes.
	Interval time.Duration

	// MaxDepth caps the fake deepening; zero means unbounded.
	MaxDepth int
}

// Search implements search.Searcher.
func (s *SpinSearcher) Search(job search.Job, local *search.Local) search.Result {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	best := search.Result{Move: core.Move(1), Value: core.ValueDraw}
	for depth := 1; ; depth++ {
		if s.MaxDepth > 0 && depth > s.MaxDepth {
			break
		}
		if depth > job.Limits.MaxDepth() {
			break
		}
		if job.Advisor != nil && !job.Advisor.ContinueIteration() {
			break
		}
		started := time.Now()
		end := started.Add(interval)
		for time.Now().Before(end) {
			if job.Shared.ShouldStop() {
				return best
			}
			for i := 0; i < 64; i++ {
				local.CountNode()
			}
		}
		best.Depth = depth
		best.Value = core.Value(depth)
		job.Shared.UpdateBestDepth(depth)
		if job.Advisor != nil {
			job.Advisor.AdviseAfterIteration(time.Since(started))
		}
	}
	return best
}
