package clock

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hayabusa-engine/hayabusa/core"
)

const (
	// guardPollInterval is the coarse watchdog cadence. The guard is a
	// last resort, not a scheduler, so it polls far less often than the
	// time manager.
	guardPollInterval = 100 * time.Millisecond

	// guardGrace is how long the guard waits for workers to drain after
	// each escalation before escalating again.
	guardGrace = 500 * time.Millisecond

	// guardFloor is the minimum ceiling regardless of control.
	guardFloor = 1 * time.Second

	// guardUnbounded is the ceiling for controls without a clock. Even
	// an infinite search gets a watchdog so a wedged process surfaces.
	guardUnbounded = 1 * time.Hour
)

// WatchedSearch is what the guard needs to observe and stop a search.
type WatchedSearch interface {
	SearchState
	ActiveWorkers() int
}

// Guard is the independent fail-safe watchdog. It computes its own
// ceiling directly from the time control, sharing no state with the
// time manager, so a bug in the manager's arithmetic cannot take the
// watchdog down with it.
type Guard struct {
	side    core.Color
	logger  *slog.Logger
	control atomic.Pointer[Control]

	start     time.Time
	ceiling   atomic.Int64
	ponderHit atomic.Bool
}

// NewGuard builds a guard for one search session.
func NewGuard(control Control, side core.Color, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{side: side, logger: logger}
	g.control.Store(&control)
	g.ceiling.Store(int64(guardCeiling(control, side)))
	return g
}

// guardCeiling derives the watchdog ceiling from the control alone.
func guardCeiling(c Control, side core.Color) time.Duration {
	var ceiling time.Duration
	switch c.Kind {
	case KindFixedTime:
		ceiling = c.MoveTime * 3
	case KindFischer:
		remain := c.Remaining[0]
		if c.Remaining[1] > remain {
			remain = c.Remaining[1]
		}
		ceiling = remain * 9 / 10
	case KindByoyomi:
		if main := c.RemainingFor(side); main > 0 {
			ceiling = main + c.Period
		} else {
			ceiling = c.Period - 300*time.Millisecond
			if ceiling < 100*time.Millisecond {
				ceiling = 100 * time.Millisecond
			}
		}
	default:
		ceiling = guardUnbounded
	}
	if ceiling < guardFloor && c.Kind != KindByoyomi {
		ceiling = guardFloor
	}
	return ceiling
}

// Start begins the guard clock.
func (g *Guard) Start() { g.start = time.Now() }

// Ceiling returns the current watchdog ceiling.
func (g *Guard) Ceiling() time.Duration { return time.Duration(g.ceiling.Load()) }

// PonderHit recomputes the ceiling from the inner control, once. The
// clock restarts at the hit so the opponent's thinking time does not
// count against the ceiling.
func (g *Guard) PonderHit() {
	ctrl := g.control.Load()
	if ctrl.Kind != KindPonder || ctrl.Inner == nil {
		return
	}
	if !g.ponderHit.CompareAndSwap(false, true) {
		return
	}
	inner := *ctrl.Inner
	g.control.Store(&inner)
	elapsed := time.Since(g.start)
	g.ceiling.Store(int64(elapsed + guardCeiling(inner, g.side)))
}

// Run polls until the search stops on its own or the ceiling passes.
// Past the ceiling it escalates in stages: request a stop, wait a
// grace period for the workers to drain, repeat once, and finally
// declare the session unresponsive.
func (g *Guard) Run(s WatchedSearch) {
	for {
		if s.ShouldStop() && s.ActiveWorkers() == 0 {
			return
		}
		elapsed := time.Since(g.start)
		if elapsed >= g.Ceiling() {
			break
		}
		time.Sleep(guardPollInterval)
	}

	elapsed := time.Since(g.start)
	info := core.StopInfo{
		Reason:       core.StopFailSafe,
		Elapsed:      elapsed,
		Nodes:        s.Nodes(),
		DepthReached: s.BestDepth(),
		HardTimeout:  true,
	}
	if s.StopWithInfo(info) {
		g.logger.Warn("fail-safe ceiling reached",
			slog.Duration("elapsed", elapsed),
			slog.Duration("ceiling", g.Ceiling()))
	}

	for stage := 1; stage <= 2; stage++ {
		if g.drained(s) {
			return
		}
		g.logger.Error("search did not stop after fail-safe trigger",
			slog.Int("stage", stage),
			slog.Int("active_workers", s.ActiveWorkers()),
			slog.Duration("elapsed", time.Since(g.start)))
		s.StopWithInfo(info)
	}
	if g.drained(s) {
		return
	}
	g.logger.Error("search unresponsive, giving up",
		slog.Int("active_workers", s.ActiveWorkers()),
		slog.Duration("elapsed", time.Since(g.start)))
	g.abort()
}

// drained waits one grace period for the workers to finish.
func (g *Guard) drained(s WatchedSearch) bool {
	deadline := time.Now().Add(guardGrace)
	for time.Now().Before(deadline) {
		if s.ActiveWorkers() == 0 {
			return true
		}
		time.Sleep(guardPollInterval)
	}
	return s.ActiveWorkers() == 0
}
