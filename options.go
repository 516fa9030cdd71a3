package hayabusa

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTableSizeMB is the transposition table size used when the
	// caller does not configure one.
	DefaultTableSizeMB = 16

	// DefaultMoveOverhead is the communication cost assumed per move.
	DefaultMoveOverhead = 30 * time.Millisecond
)

type options struct {
	tableSizeMB     int
	workers         int
	moveOverhead    time.Duration
	pollGranularity time.Duration

	logger  *Logger
	metrics MetricsCollector

	progress     func(Progress)
	progressRate rate.Limit

	onFinal func(Final)
}

// Option configures Engine constructor behavior.
type Option func(*options)

// WithTableSize sets the transposition table size in megabytes.
func WithTableSize(mb int) Option {
	return func(o *options) {
		o.tableSizeMB = mb
	}
}

// WithWorkers sets the number of search workers. Zero defaults to the
// number of CPUs; a negative count makes New fail with
// ErrInvalidWorkerCount.
//
// Each worker searches the same root independently with its own move
// ordering jitter; they communicate only through the transposition
// table and the shared counters. Diminishing returns set in past the
// physical core count.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMoveOverhead sets the per-move communication cost subtracted from
// every time budget. Raise it on slow links so the engine never flags
// while the final move is in flight.
func WithMoveOverhead(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.moveOverhead = d
		}
	}
}

// WithPollGranularity overrides the time manager's adaptive polling
// interval. Smaller values stop closer to the thresholds at the cost
// of more wakeups; zero keeps the adaptive behavior.
func WithPollGranularity(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollGranularity = d
		}
	}
}

// WithLogger sets the logger. If nil, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithProgress installs a progress callback invoked while a session
// runs. Calls are rate limited; perSecond caps how often the callback
// fires regardless of poll granularity.
func WithProgress(fn func(Progress), perSecond float64) Option {
	return func(o *options) {
		o.progress = fn
		if perSecond > 0 {
			o.progressRate = rate.Limit(perSecond)
		}
	}
}

// WithFinalHandler installs a callback that receives the final result
// of every session. The callback fires exactly once per session, no
// matter how many stop triggers race.
func WithFinalHandler(fn func(Final)) Option {
	return func(o *options) {
		o.onFinal = fn
	}
}

func defaultOptions() options {
	return options{
		tableSizeMB:  DefaultTableSizeMB,
		moveOverhead: DefaultMoveOverhead,
		logger:       NoopLogger(),
		metrics:      NoopMetricsCollector{},
		progressRate: rate.Limit(10),
	}
}
