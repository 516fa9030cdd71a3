// Package clock manages the time budget of a search session. It turns a
// time control into soft, optimal and hard thresholds, polls them while
// the search runs, and carries an independent fail-safe watchdog so that
// a wedged search can never lose on time.
package clock

import (
	"fmt"
	"time"

	"github.com/hayabusa-engine/hayabusa/core"
)

// Kind discriminates the time control variants.
type Kind uint8

const (
	// KindInfinite searches until stopped externally. It is the zero
	// value so an unset control never flags on time.
	KindInfinite Kind = iota
	// KindFixedTime spends a fixed duration per move.
	KindFixedTime
	// KindFischer keeps a main clock per side plus an increment per move.
	KindFischer
	// KindByoyomi keeps a main clock followed by countable overtime periods.
	KindByoyomi
	// KindFixedNodes stops after a node count instead of a duration.
	KindFixedNodes
	// KindPonder searches on the opponent's time until a ponder hit
	// converts it into the inner control.
	KindPonder
)

func (k Kind) String() string {
	switch k {
	case KindFixedTime:
		return "fixed_time"
	case KindFischer:
		return "fischer"
	case KindByoyomi:
		return "byoyomi"
	case KindFixedNodes:
		return "fixed_nodes"
	case KindInfinite:
		return "infinite"
	case KindPonder:
		return "ponder"
	default:
		return "unknown"
	}
}

// Control describes how much time or work a search may spend. Use the
// constructors; the zero value is an infinite control.
type Control struct {
	Kind Kind

	// MoveTime is the per-move budget of a fixed-time control.
	MoveTime time.Duration

	// Remaining holds the main clock per side for Fischer and the main
	// clock (both sides share it here) for byoyomi.
	Remaining [2]time.Duration

	// Increment is the Fischer increment added after every move.
	Increment time.Duration

	// Period and Periods describe byoyomi overtime: each period grants
	// Period time and resets when a move finishes inside it.
	Period  time.Duration
	Periods int

	// MaxNodes bounds a fixed-nodes control.
	MaxNodes uint64

	// Inner is the control a ponder search converts to on ponder hit.
	Inner *Control
}

// FixedTime builds a control spending exactly d per move.
func FixedTime(d time.Duration) Control {
	return Control{Kind: KindFixedTime, MoveTime: d}
}

// Fischer builds a control with remaining main time per side and an
// increment granted after each move.
func Fischer(black, white, increment time.Duration) Control {
	return Control{
		Kind:      KindFischer,
		Remaining: [2]time.Duration{black, white},
		Increment: increment,
	}
}

// Byoyomi builds a control with a shared main clock followed by periods
// overtime periods of period each.
func Byoyomi(main, period time.Duration, periods int) Control {
	return Control{
		Kind:      KindByoyomi,
		Remaining: [2]time.Duration{main, main},
		Period:    period,
		Periods:   periods,
	}
}

// FixedNodes builds a control that stops after n nodes.
func FixedNodes(n uint64) Control {
	return Control{Kind: KindFixedNodes, MaxNodes: n}
}

// Infinite builds a control with no limit; only an external stop or the
// fail-safe ceiling ends the search.
func Infinite() Control {
	return Control{Kind: KindInfinite}
}

// Ponder wraps inner so the search runs unbounded until a ponder hit
// converts it into inner.
func Ponder(inner Control) Control {
	c := inner
	return Control{Kind: KindPonder, Inner: &c}
}

// RemainingFor returns the main clock of the given side.
func (c Control) RemainingFor(side core.Color) time.Duration {
	return c.Remaining[side]
}

// Timed reports whether the control imposes any wall-clock limit before
// a ponder hit or external stop.
func (c Control) Timed() bool {
	switch c.Kind {
	case KindFixedTime, KindFischer, KindByoyomi:
		return true
	default:
		return false
	}
}

func (c Control) String() string {
	switch c.Kind {
	case KindFixedTime:
		return fmt.Sprintf("fixed_time(%v)", c.MoveTime)
	case KindFischer:
		return fmt.Sprintf("fischer(b=%v w=%v inc=%v)", c.Remaining[0], c.Remaining[1], c.Increment)
	case KindByoyomi:
		return fmt.Sprintf("byoyomi(main=%v period=%v x%d)", c.Remaining[0], c.Period, c.Periods)
	case KindFixedNodes:
		return fmt.Sprintf("fixed_nodes(%d)", c.MaxNodes)
	case KindPonder:
		return fmt.Sprintf("ponder(%s)", c.Inner)
	default:
		return c.Kind.String()
	}
}
