package hayabusa

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hayabusa-engine/hayabusa/clock"
	"github.com/hayabusa-engine/hayabusa/core"
	"github.com/hayabusa-engine/hayabusa/search"
	"github.com/hayabusa-engine/hayabusa/tt"
)

const (
	// externalPollInterval is how often the session watcher checks the
	// caller's stop flag, the context and the node and depth caps.
	externalPollInterval = 5 * time.Millisecond

	// drainPollInterval is how often the session loop checks for the
	// workers having drained after a stop.
	drainPollInterval = 2 * time.Millisecond
)

// Progress is a snapshot handed to the progress callback while a
// session runs.
type Progress struct {
	Depth    int
	Nodes    uint64
	NPS      uint64
	Elapsed  time.Duration
	Hashfull int
}

// Engine owns the long-lived search infrastructure: the transposition
// table and the worker pool. One Engine runs one session at a time;
// concurrent Search calls queue on the session gate.
type Engine struct {
	opts     options
	searcher search.Searcher
	table    *tt.Table
	pool     *search.Pool

	sessions   *semaphore.Weighted
	sessionSeq atomic.Uint64
	closed     atomic.Bool

	mu      sync.Mutex
	shared  *search.SharedState
	manager *clock.Manager
	guard   *clock.Guard
}

// New builds an engine around the caller's per-worker search routine.
func New(searcher search.Searcher, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 0 {
		return nil, &ErrInvalidWorkerCount{Workers: o.workers}
	}
	table, err := tt.New(o.tableSizeMB)
	if err != nil {
		return nil, &ErrInvalidTableSize{SizeMB: o.tableSizeMB, cause: err}
	}
	e := &Engine{
		opts:     o,
		searcher: searcher,
		table:    table,
		sessions: semaphore.NewWeighted(1),
	}
	e.pool = search.NewPool(o.workers, searcher, o.logger.Logger)
	return e, nil
}

// Table exposes the shared transposition table so the caller's search
// routine can probe and store through it.
func (e *Engine) Table() *tt.Table { return e.table }

// Workers returns the current worker count.
func (e *Engine) Workers() int { return e.pool.Size() }

// ResizeWorkers changes the worker count. Safe to call between
// sessions; during a session the change applies as workers go idle.
func (e *Engine) ResizeWorkers(n int) error {
	if n <= 0 {
		return &ErrInvalidWorkerCount{Workers: n}
	}
	e.pool.Resize(n)
	return nil
}

// ResizeTable reallocates the transposition table. It fails with
// ErrSearchActive while a session is running.
func (e *Engine) ResizeTable(mb int) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if !e.sessions.TryAcquire(1) {
		return ErrSearchActive
	}
	defer e.sessions.Release(1)
	if err := e.table.Resize(mb); err != nil {
		return &ErrInvalidTableSize{SizeMB: mb, cause: err}
	}
	return nil
}

// ClearTable wipes the transposition table between games. It fails
// with ErrSearchActive while a session is running.
func (e *Engine) ClearTable() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if !e.sessions.TryAcquire(1) {
		return ErrSearchActive
	}
	defer e.sessions.Release(1)
	e.table.Clear()
	return nil
}

// Search runs one session over pos under limits and returns the final
// result. It blocks until the session ends; the configured final
// handler, if any, receives the same result exactly once.
func (e *Engine) Search(ctx context.Context, pos core.Position, limits search.Limits) (Final, error) {
	if e.closed.Load() {
		return Final{}, ErrEngineClosed
	}
	if pos == nil {
		return Final{}, ErrNoPosition
	}
	if err := e.sessions.Acquire(ctx, 1); err != nil {
		return Final{}, err
	}
	defer e.sessions.Release(1)

	session := e.sessionSeq.Add(1)
	if limits.SessionID == 0 {
		limits.SessionID = session ^ uint64(time.Now().UnixNano())
	}
	if limits.MoveOverhead == 0 {
		limits.MoveOverhead = e.opts.moveOverhead
	}

	shared := search.NewSharedState()
	side := pos.SideToMove()
	manager := clock.NewManager(limits.Control, side, limits.MoveOverhead, e.opts.logger.Logger)
	if e.opts.pollGranularity > 0 {
		manager.SetPollInterval(e.opts.pollGranularity)
	}
	guard := clock.NewGuard(limits.Control, side, e.opts.logger.Logger)

	e.mu.Lock()
	e.shared, e.manager, e.guard = shared, manager, guard
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.shared, e.manager, e.guard = nil, nil, nil
		e.mu.Unlock()
	}()

	e.table.NewSearch()
	e.opts.logger.SearchStarted(session, e.pool.Size(), limits.Control.String())

	manager.Start()
	guard.Start()
	go manager.Run(shared)
	go guard.Run(shared)
	go watchSession(ctx, shared, manager, limits)

	workers := e.pool.Size()
	rootHash := pos.Hash()
	var submitErr error
	for i := 0; i < workers; i++ {
		job := search.Job{
			Root:     pos.Clone(),
			RootHash: rootHash,
			Limits:   limits,
			Shared:   shared,
			Advisor:  manager,
		}
		if err := e.pool.Submit(job); err != nil {
			shared.StopWithInfo(core.StopInfo{
				Reason:  core.StopExternal,
				Elapsed: manager.Elapsed(),
			})
			submitErr = err
			break
		}
	}

	e.waitForDrain(shared, manager, limits)
	if submitErr != nil {
		return Final{}, submitErr
	}

	// Natural completion: every worker finished without any trigger
	// firing. Claim the token so late triggers cannot.
	if !shared.ShouldStop() {
		shared.StopWithInfo(core.StopInfo{
			Reason:       core.StopCompleted,
			Elapsed:      manager.Elapsed(),
			Nodes:        shared.Nodes(),
			DepthReached: shared.BestDepth(),
			SoftLimit:    manager.SoftLimit(),
			HardLimit:    manager.HardLimit(),
			PlannedEnd:   manager.PlannedEnd(),
		})
	}

	mirrorCounters(shared, limits)

	elapsed := manager.Elapsed()
	manager.FinishMove(elapsed)

	final := e.finish(session, shared, elapsed)
	newEmitter(e.opts.onFinal).emit(final)
	return final, nil
}

// waitForDrain blocks until the stop flag is set and every worker has
// returned, reporting progress along the way.
func (e *Engine) waitForDrain(shared *search.SharedState, manager *clock.Manager, limits search.Limits) {
	limiter := rate.NewLimiter(e.opts.progressRate, 1)
	for {
		mirrorCounters(shared, limits)
		if shared.ShouldStop() && shared.Drained() {
			return
		}
		if !shared.ShouldStop() && shared.Drained() {
			// Finished on its own.
			return
		}
		if e.opts.progress != nil && limiter.Allow() {
			elapsed := manager.Elapsed()
			nodes := shared.Nodes()
			e.opts.progress(Progress{
				Depth:    shared.BestDepth(),
				Nodes:    nodes,
				NPS:      search.NPS(nodes, elapsed),
				Elapsed:  elapsed,
				Hashfull: e.table.Hashfull(0),
			})
		}
		time.Sleep(drainPollInterval)
	}
}

// mirrorCounters publishes the session's node counts into the caller's
// sinks, when provided.
func mirrorCounters(shared *search.SharedState, limits search.Limits) {
	if limits.NodeSink != nil {
		limits.NodeSink.Store(shared.Nodes())
	}
	if limits.QNodeSink != nil {
		limits.QNodeSink.Store(shared.QNodes())
	}
}

// finish assembles the final result from the shared state.
func (e *Engine) finish(session uint64, shared *search.SharedState, elapsed time.Duration) Final {
	info, _ := shared.StopInfo()
	if info.Nodes == 0 {
		info.Nodes = shared.Nodes()
	}
	if info.DepthReached == 0 {
		info.DepthReached = shared.BestDepth()
	}

	final := Final{
		Nodes: shared.Nodes(),
		NPS:   search.NPS(shared.Nodes(), elapsed),
		Info:  info,
	}
	if best, ok := shared.BestResult(); ok {
		final.Move = best.Move
		final.Value = best.Value
		final.Depth = best.Depth
		final.PV = best.PV
		if len(best.PV) > 1 {
			final.Ponder = best.PV[1]
		}
	}

	load := e.table.Hashfull(0)
	e.opts.metrics.RecordSearch(final.Depth, final.Nodes, elapsed)
	e.opts.metrics.RecordStop(info.Reason.String(), info.HardTimeout)
	e.opts.metrics.RecordTableLoad(load)
	e.opts.logger.SearchFinished(session, info.Reason.String(), final.Depth, final.Nodes, final.NPS)
	return final
}

// watchSession polls the caller-facing triggers: context cancellation,
// the external stop flag, and the node and depth caps.
func watchSession(ctx context.Context, shared *search.SharedState, manager *clock.Manager, limits search.Limits) {
	for !shared.ShouldStop() {
		if err := ctx.Err(); err != nil {
			externalStop(shared, manager, core.StopExternal)
			return
		}
		if limits.ExternalStopped() {
			externalStop(shared, manager, core.StopExternal)
			return
		}
		if limits.Nodes > 0 && shared.Nodes() >= limits.Nodes {
			externalStop(shared, manager, core.StopNodeLimit)
			return
		}
		if limits.Depth > 0 && shared.BestDepth() >= limits.Depth {
			externalStop(shared, manager, core.StopDepthLimit)
			return
		}
		time.Sleep(externalPollInterval)
	}
}

func externalStop(shared *search.SharedState, manager *clock.Manager, reason core.StopReason) {
	manager.Stop()
	shared.StopWithInfo(core.StopInfo{
		Reason:       reason,
		Elapsed:      manager.Elapsed(),
		Nodes:        shared.Nodes(),
		DepthReached: shared.BestDepth(),
		SoftLimit:    manager.SoftLimit(),
		HardLimit:    manager.HardLimit(),
		PlannedEnd:   manager.PlannedEnd(),
	})
}

// Stop ends the running session, if any, as an external stop.
func (e *Engine) Stop() {
	e.mu.Lock()
	shared, manager := e.shared, e.manager
	e.mu.Unlock()
	if shared == nil || manager == nil {
		return
	}
	externalStop(shared, manager, core.StopExternal)
}

// PonderHit converts a running ponder session to its inner control.
func (e *Engine) PonderHit() {
	e.mu.Lock()
	manager, guard := e.manager, e.guard
	e.mu.Unlock()
	if manager != nil {
		manager.PonderHit()
	}
	if guard != nil {
		guard.PonderHit()
	}
}

// Close stops any running session and shuts the engine down. It is
// idempotent.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.Stop()
	// Wait for the active session to release the gate.
	_ = e.sessions.Acquire(context.Background(), 1)
	e.sessions.Release(1)
	e.pool.Close()
	return nil
}
