package clock

import (
	"math"
	"time"

	"github.com/hayabusa-engine/hayabusa/core"
)

// noLimit marks thresholds that never fire.
const noLimit = time.Duration(math.MaxInt64)

const (
	// estimatedMovesLeft is the horizon used to split a Fischer main
	// clock across the remaining game.
	estimatedMovesLeft = 30

	// panicRemaining is the Fischer threshold below which, with no
	// increment, the allocation collapses to a flat minimum.
	panicRemaining = 1 * time.Second

	minSoft = 50 * time.Millisecond
	minHard = 100 * time.Millisecond
)

// Budget holds the three thresholds derived from a time control.
//
// Soft is where iterative deepening should stop starting new
// iterations, Opt is the preferred total spend, and Hard is the
// absolute wall the search must never cross.
type Budget struct {
	Soft time.Duration
	Opt  time.Duration
	Hard time.Duration
}

// Limited reports whether the budget imposes any wall-clock bound.
func (b Budget) Limited() bool { return b.Hard != noLimit }

// Allocate derives the soft, optimal and hard thresholds for one move
// of the given control, played by side, assuming overhead is lost to
// communication on every move.
func Allocate(c Control, side core.Color, overhead time.Duration) Budget {
	switch c.Kind {
	case KindFixedTime:
		hard := c.MoveTime - overhead
		if hard < minHard {
			hard = minHard
		}
		soft := c.MoveTime * 9 / 10
		if soft > hard {
			soft = hard
		}
		return withOpt(soft, hard)

	case KindFischer:
		remain := c.RemainingFor(side) - overhead
		if remain < panicRemaining && c.Increment == 0 {
			return withOpt(minSoft, minHard)
		}
		if remain < 0 {
			remain = 0
		}
		soft := remain/estimatedMovesLeft + c.Increment*8/10
		if soft < minSoft {
			soft = minSoft
		}
		hard := soft * 5
		if lim := remain * 8 / 10; hard > lim {
			hard = lim
		}
		if hard < minHard {
			hard = minHard
		}
		if soft > hard {
			soft = hard
		}
		return withOpt(soft, hard)

	case KindByoyomi:
		main := c.RemainingFor(side)
		if main > 0 {
			soft := main/10 + c.Period*7/10
			hard := main/2 + c.Period - overhead
			if hard < minHard {
				hard = minHard
			}
			if soft > hard {
				soft = hard
			}
			return withOpt(soft, hard)
		}
		hard := c.Period - overhead
		if hard < minHard {
			hard = minHard
		}
		soft := c.Period * 8 / 10
		if soft > hard {
			soft = hard
		}
		return withOpt(soft, hard)

	default:
		// Fixed nodes, infinite and ponder carry no clock thresholds;
		// the node limit and external stop are enforced elsewhere.
		return Budget{Soft: noLimit, Opt: noLimit, Hard: noLimit}
	}
}

// withOpt fills in the optimal threshold: one and a half soft budgets,
// but never more than 80% of the hard wall, and never below soft.
func withOpt(soft, hard time.Duration) Budget {
	opt := soft * 3 / 2
	if lim := hard * 8 / 10; opt > lim {
		opt = lim
	}
	if opt < soft {
		opt = soft
	}
	return Budget{Soft: soft, Opt: opt, Hard: hard}
}

// safetyMargin is how far before the hard wall a planned stop must
// land. Tighter clocks leave thinner margins.
func safetyMargin(hard time.Duration) time.Duration {
	switch {
	case hard >= 5*time.Second:
		return 1200 * time.Millisecond
	case hard >= 1*time.Second:
		return 500 * time.Millisecond
	case hard >= 500*time.Millisecond:
		return 200 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}
