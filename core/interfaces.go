package core

// Position is the board abstraction the search core operates on. The
// concrete representation (bitboards, mailbox, anything else) lives
// outside this module; the core needs only hashing, the side to move,
// and move revalidation.
type Position interface {
	// Hash returns the Zobrist key of the position.
	Hash() uint64

	// SideToMove returns the color to play.
	SideToMove() Color

	// ValidateMove reports whether a move stored by an earlier search is
	// legal in this exact position. Stale cross-position moves must be
	// rejected here, never played.
	ValidateMove(m Move) bool

	// Clone returns an independent copy. Workers own their copies; the
	// core never mutates a position it did not clone.
	Clone() Position
}

// Evaluator scores a position from the side to move's point of view.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(pos Position) Value
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(pos Position) Value

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(pos Position) Value { return f(pos) }
