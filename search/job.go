package search

import (
	"time"

	"github.com/hayabusa-engine/hayabusa/core"
)

// TimeAdvisor is the clock-side handle a deepening loop consults
// between iterations: whether another iteration is worth starting, and
// how long the last one took so the schedule can tighten.
type TimeAdvisor interface {
	ContinueIteration() bool
	AdviseAfterIteration(lastIteration time.Duration)
}

// Job is one unit of work for the pool: a root position to search
// under the session's limits, against the session's shared state.
// Every worker gets its own clone of the position. Advisor may be nil
// when no clock governs the job.
type Job struct {
	Root     core.Position
	RootHash uint64
	Limits   Limits
	Shared   *SharedState
	Advisor  TimeAdvisor
}

// Result is what one worker brings back from a job.
type Result struct {
	Move     core.Move
	Value    core.Value
	Depth    int
	PV       []core.Move
	Nodes    uint64
	WorkerID int
}

// Better reports whether r beats other: deeper results win, and at
// equal depth the higher value wins.
func (r Result) Better(other Result) bool {
	if r.Depth != other.Depth {
		return r.Depth > other.Depth
	}
	return r.Value > other.Value
}

// Searcher runs one worker's search over a job. Implementations must
// poll job.Shared.ShouldStop and return promptly once it fires.
type Searcher interface {
	Search(job Job, local *Local) Result
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(job Job, local *Local) Result

// Search calls f.
func (f SearcherFunc) Search(job Job, local *Local) Result { return f(job, local) }
