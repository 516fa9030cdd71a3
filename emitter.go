package hayabusa

import (
	"sync/atomic"

	"github.com/hayabusa-engine/hayabusa/core"
)

// Final is the single result a session emits: the chosen move, what
// the search knew about it, and why the session ended.
type Final struct {
	Move   core.Move
	Ponder core.Move
	Value  core.Value
	Depth  int
	PV     []core.Move
	Nodes  uint64
	NPS    uint64
	Info   core.StopInfo
}

// emitter guarantees a session's final result is delivered exactly
// once. The time manager, the fail-safe guard, an external stop and
// normal completion can all try to finish the session; only the first
// emit goes through.
type emitter struct {
	emitted atomic.Bool
	fn      func(Final)
}

func newEmitter(fn func(Final)) *emitter {
	return &emitter{fn: fn}
}

// emit delivers f if nothing was emitted yet and reports whether this
// call won.
func (e *emitter) emit(f Final) bool {
	if !e.emitted.CompareAndSwap(false, true) {
		return false
	}
	if e.fn != nil {
		e.fn(f)
	}
	return true
}
