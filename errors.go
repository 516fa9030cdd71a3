package hayabusa

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("engine closed")

	// ErrSearchActive is returned when a call needs an idle engine but
	// a session is still running.
	ErrSearchActive = errors.New("search already active")

	// ErrNoPosition is returned when Search is called with a nil
	// position.
	ErrNoPosition = errors.New("no position to search")
)

// ErrInvalidTableSize indicates an unusable transposition table size.
//
// The original underlying error (if any) can be accessed via
// errors.Unwrap.
type ErrInvalidTableSize struct {
	SizeMB int
	cause  error
}

func (e *ErrInvalidTableSize) Error() string {
	return fmt.Sprintf("invalid table size: %d MB", e.SizeMB)
}

func (e *ErrInvalidTableSize) Unwrap() error { return e.cause }

// ErrInvalidWorkerCount indicates an unusable worker count.
type ErrInvalidWorkerCount struct {
	Workers int
}

func (e *ErrInvalidWorkerCount) Error() string {
	return fmt.Sprintf("invalid worker count: %d", e.Workers)
}
