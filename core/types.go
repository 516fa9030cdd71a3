// Package core holds the small domain types shared by every search
// component: scores, bounds, sides, moves, and the external interfaces
// the engine is parameterized over (position and evaluator).
package core

// Value is a search score in centipawns, or a mate distance near the ends
// of the range. It is strictly 16-bit when stored in the table.
type Value int32

const (
	// ValueNone marks an absent score (never produced by evaluation).
	ValueNone Value = 32002
	// ValueInfinite bounds the alpha-beta window.
	ValueInfinite Value = 32001
	// ValueMate is the score for delivering mate at the root.
	ValueMate Value = 32000
	// ValueMateInMaxPly is the smallest score still recognized as a mate.
	ValueMateInMaxPly Value = ValueMate - Value(MaxPly)
	// ValueDraw is the score of a drawn position.
	ValueDraw Value = 0
)

// MaxPly is the deepest ply the search will ever reach.
const MaxPly = 127

// IsMate reports whether v encodes a mate for either side.
func (v Value) IsMate() bool {
	return v >= ValueMateInMaxPly || v <= -ValueMateInMaxPly
}

// ToTT converts a root-relative mate score to a node-relative one for
// storage. Non-mate scores pass through unchanged.
func (v Value) ToTT(ply int) Value {
	if v >= ValueMateInMaxPly {
		return v + Value(ply)
	}
	if v <= -ValueMateInMaxPly {
		return v - Value(ply)
	}
	return v
}

// FromTT undoes ToTT when reading a stored score back at the given ply.
func (v Value) FromTT(ply int) Value {
	if v == ValueNone {
		return v
	}
	if v >= ValueMateInMaxPly {
		return v - Value(ply)
	}
	if v <= -ValueMateInMaxPly {
		return v + Value(ply)
	}
	return v
}

// Bound classifies a stored score relative to the alpha-beta window.
type Bound uint8

const (
	// BoundNone marks an entry with no usable score.
	BoundNone Bound = 0
	// BoundUpper is a fail-low score (true value <= stored).
	BoundUpper Bound = 1
	// BoundLower is a fail-high score (true value >= stored).
	BoundLower Bound = 2
	// BoundExact is a score searched with a full window.
	BoundExact Bound = BoundUpper | BoundLower
)

func (b Bound) String() string {
	switch b {
	case BoundUpper:
		return "upper"
	case BoundLower:
		return "lower"
	case BoundExact:
		return "exact"
	default:
		return "none"
	}
}

// Color is the side to move.
type Color uint8

const (
	Black Color = 0
	White Color = 1
)

// Flip returns the opposite side.
func (c Color) Flip() Color { return c ^ 1 }

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Move is a 16-bit encoded move. The encoding is owned by the move
// generator; the search core only stores, compares and relays it.
type Move uint16

// MoveNone is the absent move.
const MoveNone Move = 0

// IsNone reports whether m is the absent move.
func (m Move) IsNone() bool { return m == MoveNone }
