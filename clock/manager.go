package clock

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hayabusa-engine/hayabusa/core"
)

// State is the phase of the time manager.
type State int32

const (
	// StateIdle means the manager was created but the clock has not
	// started.
	StateIdle State = iota
	// StatePolling means the search is running and thresholds are
	// checked on every poll.
	StatePolling
	// StateNearLimit means the optimal threshold has passed and a
	// planned end is scheduled.
	StateNearLimit
	// StateStopped means a threshold fired or the manager was stopped.
	StateStopped
)

// FinalizeReason tags which trigger made the manager request the stop.
type FinalizeReason uint8

const (
	FinalizeNone FinalizeReason = iota
	// FinalizeHard means the hard wall itself was crossed.
	FinalizeHard
	// FinalizeNearHard means the planned end fired inside the safety
	// margin of the hard wall.
	FinalizeNearHard
	// FinalizePlanned means the scheduled whole-second stop fired.
	FinalizePlanned
	// FinalizeNodes means the fixed node budget was exhausted.
	FinalizeNodes
	// FinalizeByoyomi means every overtime period was consumed.
	FinalizeByoyomi
	// FinalizeManagerStop means Stop was called on the manager.
	FinalizeManagerStop
)

func (r FinalizeReason) String() string {
	switch r {
	case FinalizeHard:
		return "hard"
	case FinalizeNearHard:
		return "near_hard"
	case FinalizePlanned:
		return "planned"
	case FinalizeNodes:
		return "nodes"
	case FinalizeByoyomi:
		return "byoyomi"
	case FinalizeManagerStop:
		return "manager_stop"
	default:
		return "none"
	}
}

// SearchState is the slice of the shared search state the manager needs
// to poll and to stop. *search.SharedState satisfies it.
type SearchState interface {
	ShouldStop() bool
	Nodes() uint64
	BestDepth() int
	StopWithInfo(info core.StopInfo) bool
}

// minNodesBeforeTimeStop guards against stopping on clock readings taken
// before the search has done any real work.
const minNodesBeforeTimeStop = 100

// Manager turns a time control into thresholds and polls them while a
// search runs. All methods are safe for concurrent use; workers call
// ShouldStop on their hot path while the Run goroutine polls.
type Manager struct {
	side     core.Color
	overhead time.Duration
	logger   *slog.Logger

	active atomic.Pointer[Control]

	start time.Time

	// Thresholds in nanoseconds since start. noLimit disables one.
	soft    atomic.Int64
	opt     atomic.Int64
	hard    atomic.Int64
	planned atomic.Int64

	state     atomic.Int32
	cause     atomic.Uint32
	ponderHit atomic.Bool
	pollNs    atomic.Int64

	byoMu        sync.Mutex
	byoPeriods   int
	byoCurrent   time.Duration
	byoExhausted atomic.Bool
}

// NewManager builds a manager for one search session. The clock does
// not run until Start is called.
func NewManager(control Control, side core.Color, overhead time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{side: side, overhead: overhead, logger: logger}
	m.active.Store(&control)
	m.applyBudget(Allocate(control, side, overhead), 0)
	m.planned.Store(int64(noLimit))
	if control.Kind == KindByoyomi {
		m.byoPeriods = control.Periods
		m.byoCurrent = control.Period
	}
	return m
}

func (m *Manager) applyBudget(b Budget, base time.Duration) {
	m.soft.Store(addLimit(base, b.Soft))
	m.opt.Store(addLimit(base, b.Opt))
	m.hard.Store(addLimit(base, b.Hard))
}

func addLimit(base, limit time.Duration) int64 {
	if limit == noLimit {
		return int64(noLimit)
	}
	return int64(base + limit)
}

// Start begins the clock and moves the manager to the polling state.
func (m *Manager) Start() {
	m.start = time.Now()
	m.state.CompareAndSwap(int32(StateIdle), int32(StatePolling))
}

// State returns the current phase.
func (m *Manager) State() State { return State(m.state.Load()) }

// Elapsed is the time since Start.
func (m *Manager) Elapsed() time.Duration { return time.Since(m.start) }

// SoftLimit returns the soft threshold measured from Start.
func (m *Manager) SoftLimit() time.Duration { return time.Duration(m.soft.Load()) }

// OptLimit returns the optimal threshold measured from Start.
func (m *Manager) OptLimit() time.Duration { return time.Duration(m.opt.Load()) }

// HardLimit returns the hard wall measured from Start.
func (m *Manager) HardLimit() time.Duration { return time.Duration(m.hard.Load()) }

// PlannedEnd returns the scheduled stop, or noLimit when none is set.
func (m *Manager) PlannedEnd() time.Duration { return time.Duration(m.planned.Load()) }

// Cause reports which trigger stopped the manager.
func (m *Manager) Cause() FinalizeReason { return FinalizeReason(m.cause.Load()) }

// Stop forces the manager into the stopped state.
func (m *Manager) Stop() {
	m.setStopped(FinalizeManagerStop)
}

func (m *Manager) setStopped(cause FinalizeReason) {
	if m.state.Swap(int32(StateStopped)) != int32(StateStopped) {
		m.cause.Store(uint32(cause))
	}
}

// ShouldStop reports whether the search must stop now. Workers call it
// with the shared node count; time-based stops are suppressed until the
// search has visited more than minNodesBeforeTimeStop nodes.
func (m *Manager) ShouldStop(nodes uint64) bool {
	switch State(m.state.Load()) {
	case StateStopped:
		return true
	case StateIdle:
		// The clock has not started; there is nothing to measure.
		return false
	}
	ctrl := m.active.Load()
	if ctrl.Kind == KindFixedNodes {
		if nodes >= ctrl.MaxNodes {
			m.setStopped(FinalizeNodes)
			return true
		}
		return false
	}
	if m.byoExhausted.Load() {
		m.setStopped(FinalizeByoyomi)
		return true
	}
	hard := time.Duration(m.hard.Load())
	if hard == noLimit {
		return false
	}
	if nodes <= minNodesBeforeTimeStop {
		return false
	}
	elapsed := m.Elapsed()
	if elapsed >= hard {
		m.setStopped(FinalizeHard)
		return true
	}
	if planned := time.Duration(m.planned.Load()); elapsed >= planned {
		if hard-planned <= safetyMargin(hard) {
			m.setStopped(FinalizeNearHard)
		} else {
			m.setStopped(FinalizePlanned)
		}
		return true
	}
	if elapsed >= time.Duration(m.opt.Load()) {
		m.scheduleStop(elapsed, hard)
	}
	return false
}

// ContinueIteration reports whether iterative deepening may start
// another iteration. A new iteration is worthwhile only while the soft
// threshold has not passed.
func (m *Manager) ContinueIteration() bool {
	if State(m.state.Load()) == StateStopped {
		return false
	}
	soft := time.Duration(m.soft.Load())
	return soft == noLimit || m.Elapsed() < soft
}

// scheduleStop plans the end on the next whole-second boundary of the
// elapsed clock, minus the communication overhead, but never later than
// the hard wall minus its safety margin. The planned end only ever
// moves earlier.
func (m *Manager) scheduleStop(elapsed, hard time.Duration) {
	m.state.CompareAndSwap(int32(StatePolling), int32(StateNearLimit))
	end := (elapsed/time.Second+1)*time.Second - m.overhead
	if end <= elapsed {
		end += time.Second
	}
	if lim := hard - safetyMargin(hard); end > lim {
		end = lim
	}
	if end < elapsed {
		end = elapsed
	}
	m.tighten(end)
}

// tighten min-stores a planned end. Concurrent advisers may race; the
// earliest end wins.
func (m *Manager) tighten(end time.Duration) {
	for {
		cur := m.planned.Load()
		if int64(end) >= cur {
			return
		}
		if m.planned.CompareAndSwap(cur, int64(end)) {
			return
		}
	}
}

// AdviseAfterIteration is called between deepening iterations with the
// duration of the iteration that just finished. When the next iteration
// cannot plausibly finish inside the optimal budget the planned end is
// pulled forward. Advice only ever tightens the schedule.
func (m *Manager) AdviseAfterIteration(lastIteration time.Duration) {
	hard := time.Duration(m.hard.Load())
	if hard == noLimit {
		return
	}
	elapsed := m.Elapsed()
	// The next iteration typically costs at least twice the last one.
	if elapsed+2*lastIteration > time.Duration(m.opt.Load()) {
		m.scheduleStop(elapsed, hard)
	}
}

// PonderHit converts a ponder search into its inner control. The
// thresholds are measured from the moment of the hit. Only the first
// call has any effect.
func (m *Manager) PonderHit() {
	ctrl := m.active.Load()
	if ctrl.Kind != KindPonder || ctrl.Inner == nil {
		return
	}
	if !m.ponderHit.CompareAndSwap(false, true) {
		return
	}
	inner := *ctrl.Inner
	m.active.Store(&inner)
	base := m.Elapsed()
	m.applyBudget(Allocate(inner, m.side, m.overhead), base)
	if inner.Kind == KindByoyomi {
		m.byoMu.Lock()
		m.byoPeriods = inner.Periods
		m.byoCurrent = inner.Period
		m.byoMu.Unlock()
	}
	m.logger.Debug("ponder hit",
		slog.Duration("base", base),
		slog.String("control", inner.String()))
}

// FinishMove books the time spent on a finished move against a byoyomi
// clock. Finishing inside the current period resets it to full length.
// Spending one or more whole periods consumes them; spending more than
// every remaining period forfeits the clock and stops the manager.
func (m *Manager) FinishMove(spent time.Duration) {
	ctrl := m.active.Load()
	if ctrl.Kind != KindByoyomi || ctrl.Period <= 0 {
		return
	}
	m.byoMu.Lock()
	defer m.byoMu.Unlock()
	if m.byoPeriods <= 0 {
		return
	}
	if spent > time.Duration(m.byoPeriods)*ctrl.Period {
		m.byoPeriods = 0
		m.byoCurrent = 0
		m.byoExhausted.Store(true)
		m.setStopped(FinalizeByoyomi)
		return
	}
	consumed := int(spent / ctrl.Period)
	m.byoPeriods -= consumed
	m.byoCurrent = ctrl.Period
	if m.byoPeriods == 0 {
		m.byoExhausted.Store(true)
		m.setStopped(FinalizeByoyomi)
	}
}

// PeriodsLeft returns the remaining byoyomi periods and the time left
// in the current one.
func (m *Manager) PeriodsLeft() (int, time.Duration) {
	m.byoMu.Lock()
	defer m.byoMu.Unlock()
	return m.byoPeriods, m.byoCurrent
}

// SetPollInterval overrides the adaptive polling granularity. Zero or
// negative restores the adaptive behavior.
func (m *Manager) SetPollInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.pollNs.Store(int64(d))
}

// pollInterval adapts the polling granularity to the soft budget so
// short clocks are watched closely without burning cycles on long ones.
// An explicit override wins.
func (m *Manager) pollInterval() time.Duration {
	if d := m.pollNs.Load(); d > 0 {
		return time.Duration(d)
	}
	soft := time.Duration(m.soft.Load())
	switch {
	case soft <= 100*time.Millisecond:
		return 2 * time.Millisecond
	case soft <= 500*time.Millisecond:
		return 5 * time.Millisecond
	case soft <= 2*time.Second:
		return 10 * time.Millisecond
	default:
		return 20 * time.Millisecond
	}
}

// Run polls the thresholds until the search stops. When a threshold
// fires it publishes the stop through the shared state; the first
// writer wins, so a concurrent external stop is never overwritten.
func (m *Manager) Run(s SearchState) {
	for {
		if s.ShouldStop() {
			return
		}
		nodes := s.Nodes()
		if m.ShouldStop(nodes) {
			cause := m.Cause()
			elapsed := m.Elapsed()
			info := core.StopInfo{
				Reason:       stopReason(cause),
				Elapsed:      elapsed,
				Nodes:        nodes,
				DepthReached: s.BestDepth(),
				HardTimeout:  cause == FinalizeHard,
				SoftLimit:    m.SoftLimit(),
				HardLimit:    m.HardLimit(),
				PlannedEnd:   m.PlannedEnd(),
			}
			if s.StopWithInfo(info) {
				m.logger.Debug("time manager stop",
					slog.String("cause", cause.String()),
					slog.Duration("elapsed", elapsed),
					slog.Uint64("nodes", nodes))
			}
			return
		}
		time.Sleep(m.pollInterval())
	}
}

func stopReason(cause FinalizeReason) core.StopReason {
	switch cause {
	case FinalizeNodes:
		return core.StopNodeLimit
	case FinalizeManagerStop:
		return core.StopExternal
	default:
		return core.StopTimeLimit
	}
}
