package search

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrPoolClosed is returned when submitting to a closed pool.
	ErrPoolClosed = errors.New("search: pool closed")
)

const (
	// idleTick is how often an idle worker wakes up between jobs.
	idleTick = 20 * time.Millisecond

	// joinTimeout bounds how long Close and Resize wait for a worker
	// to finish its current job before handing it to the reaper.
	joinTimeout = 2 * time.Second
)

// Pool runs search jobs on a resizable set of workers. Jobs arrive on
// a shared queue; urgent jobs (a ponder hit, a re-search after a fail
// low) can jump the line through the high-priority queue. Each worker
// keeps its own Local state across jobs.
type Pool struct {
	searcher Searcher
	logger   *slog.Logger

	jobs chan Job
	hi   chan Job

	mu      sync.Mutex
	workers []*worker
	nextID  int

	closed atomic.Bool
}

type worker struct {
	id    int
	local *Local
	ctrl  chan struct{}
	done  chan struct{}
}

// NewPool starts size workers running searcher. Size zero or negative
// defaults to the number of CPUs.
func NewPool(size int, searcher Searcher, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		searcher: searcher,
		logger:   logger,
		jobs:     make(chan Job, size*2),
		hi:       make(chan Job, size),
	}
	p.mu.Lock()
	p.grow(size)
	p.mu.Unlock()
	return p
}

// grow spawns n workers. Callers hold p.mu.
func (p *Pool) grow(n int) {
	for i := 0; i < n; i++ {
		w := &worker{
			id:    p.nextID,
			local: NewLocal(p.nextID),
			ctrl:  make(chan struct{}),
			done:  make(chan struct{}),
		}
		p.nextID++
		p.workers = append(p.workers, w)
		go p.run(w)
	}
}

func (p *Pool) run(w *worker) {
	defer close(w.done)
	tick := time.NewTicker(idleTick)
	defer tick.Stop()
	for {
		// A dismissed worker exits before touching the queues again.
		select {
		case <-w.ctrl:
			return
		default:
		}
		// Urgent work first; the outer select picks at random.
		select {
		case job := <-p.hi:
			p.execute(w, job)
			continue
		default:
		}
		select {
		case <-w.ctrl:
			return
		case job := <-p.hi:
			p.execute(w, job)
		case job := <-p.jobs:
			p.execute(w, job)
		case <-tick.C:
		}
	}
}

func (p *Pool) execute(w *worker, job Job) {
	shared := job.Shared
	shared.WorkTaken()
	defer shared.WorkerDone()

	w.local.Bind(job)
	defer w.local.Flush()

	result := p.searcher.Search(job, w.local)
	result.WorkerID = w.id
	result.Nodes = w.local.Nodes()
	if !result.Move.IsNone() || result.Depth > 0 {
		shared.OfferResult(result)
		shared.UpdateBestDepth(result.Depth)
	}
}

// Submit queues a job for any idle worker.
func (p *Pool) Submit(job Job) error {
	return p.submit(p.jobs, job)
}

// SubmitHigh queues a job ahead of the shared queue.
func (p *Pool) SubmitHigh(job Job) error {
	return p.submit(p.hi, job)
}

// submit books and enqueues under the pool lock so a job can never
// slip into the queues after Close has started draining them.
func (p *Pool) submit(ch chan Job, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return ErrPoolClosed
	}
	job.Shared.WorkQueued()
	ch <- job
	return nil
}

// Size returns the current number of workers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Resize grows or shrinks the pool to size workers. Shrinking waits up
// to joinTimeout per batch for the dismissed workers to finish their
// current job; stragglers are reaped in the background.
func (p *Pool) Resize(size int) {
	if size <= 0 || p.closed.Load() {
		return
	}
	p.mu.Lock()
	cur := len(p.workers)
	if size > cur {
		p.grow(size - cur)
		p.mu.Unlock()
		return
	}
	dismissed := p.workers[size:]
	p.workers = p.workers[:size]
	p.mu.Unlock()

	for _, w := range dismissed {
		close(w.ctrl)
	}
	p.join(dismissed)
}

// join waits for the given workers, reaping stragglers in background.
func (p *Pool) join(ws []*worker) {
	deadline := time.After(joinTimeout)
	remaining := ws
	for len(remaining) > 0 {
		w := remaining[0]
		select {
		case <-w.done:
			remaining = remaining[1:]
		case <-deadline:
			p.logger.Warn("workers slow to exit, reaping in background",
				slog.Int("count", len(remaining)))
			go func(ws []*worker) {
				for _, w := range ws {
					<-w.done
				}
			}(remaining)
			return
		}
	}
}

// Close shuts the pool down. It is idempotent; the first call wins.
// Jobs still queued when the workers exit are unbooked so a session
// waiting on the drain is not left hanging.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.mu.Lock()
	ws := p.workers
	p.workers = nil
	p.mu.Unlock()
	for _, w := range ws {
		close(w.ctrl)
	}
	p.join(ws)
	p.drainQueues()
}

// drainQueues unbooks every job the workers never picked up.
func (p *Pool) drainQueues() {
	for {
		select {
		case job := <-p.hi:
			job.Shared.WorkAbandoned()
		case job := <-p.jobs:
			job.Shared.WorkAbandoned()
		default:
			return
		}
	}
}
