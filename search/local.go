package search

import (
	"math/rand/v2"

	"github.com/hayabusa-engine/hayabusa/core"
)

// nodeFlushInterval is how many locally counted nodes accumulate before
// they are flushed to the shared counter. Batching keeps the shared
// cache line out of the per-node hot path.
const nodeFlushInterval = 1024

// Local is the per-worker state that must not be shared: move ordering
// heuristics and the jitter source that desynchronizes the workers.
type Local struct {
	ID int

	rng *rand.Rand

	history [2][1 << 16]int16
	killers [core.MaxPly + 1][2]core.Move

	nodes  uint64
	qnodes uint64
	shared *SharedState
}

// NewLocal returns the local state for worker id.
func NewLocal(id int) *Local {
	return &Local{ID: id}
}

// Bind attaches the worker to a job: heuristics are cleared and the
// jitter source is reseeded from the session, the root position and the
// worker identity, so no two workers and no two sessions replay the
// same ordering noise.
func (l *Local) Bind(job Job) {
	l.shared = job.Shared
	l.nodes = 0
	l.qnodes = 0
	l.history = [2][1 << 16]int16{}
	l.killers = [core.MaxPly + 1][2]core.Move{}

	seed := mix64(job.Limits.SessionID)
	seed = mix64(seed ^ job.RootHash)
	seed = mix64(seed ^ uint64(l.ID))
	l.rng = rand.New(rand.NewPCG(seed, mix64(seed)))
}

// mix64 is the splitmix64 finalizer; a cheap way to spread correlated
// inputs across the seed space.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Jitter returns a value in [0, n) from the worker's private source.
func (l *Local) Jitter(n int) int {
	if n <= 1 {
		return 0
	}
	return l.rng.IntN(n)
}

// CountNode books one visited node, flushing the batch to the shared
// counter when it fills.
func (l *Local) CountNode() {
	l.nodes++
	if l.nodes%nodeFlushInterval == 0 {
		l.shared.AddNodes(nodeFlushInterval)
	}
}

// CountQNode books one quiescence node.
func (l *Local) CountQNode() {
	l.qnodes++
	if l.qnodes%nodeFlushInterval == 0 {
		l.shared.AddQNodes(nodeFlushInterval)
	}
}

// Flush publishes any unflushed node counts. Workers call it when a job
// ends so the shared totals are exact.
func (l *Local) Flush() {
	if l.shared == nil {
		return
	}
	if rem := l.nodes % nodeFlushInterval; rem != 0 {
		l.shared.AddNodes(rem)
	}
	if rem := l.qnodes % nodeFlushInterval; rem != 0 {
		l.shared.AddQNodes(rem)
	}
}

// Nodes returns this worker's node count for the current job.
func (l *Local) Nodes() uint64 { return l.nodes }

// HistoryScore returns the accumulated history of a move for a side.
func (l *Local) HistoryScore(side core.Color, mv core.Move) int16 {
	return l.history[side][mv]
}

// UpdateHistory rewards or punishes a move with saturation at the
// int16 bounds.
func (l *Local) UpdateHistory(side core.Color, mv core.Move, bonus int) {
	v := int(l.history[side][mv]) + bonus
	if v > 32000 {
		v = 32000
	} else if v < -32000 {
		v = -32000
	}
	l.history[side][mv] = int16(v)
}

// Killers returns the two killer moves recorded at ply.
func (l *Local) Killers(ply int) [2]core.Move {
	if ply < 0 || ply > core.MaxPly {
		return [2]core.Move{}
	}
	return l.killers[ply]
}

// RecordKiller installs a quiet move that caused a cutoff at ply. The
// most recent killer sits in slot 0.
func (l *Local) RecordKiller(ply int, mv core.Move) {
	if ply < 0 || ply > core.MaxPly || mv.IsNone() {
		return
	}
	if l.killers[ply][0] == mv {
		return
	}
	l.killers[ply][1] = l.killers[ply][0]
	l.killers[ply][0] = mv
}
