package simloop

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOptions is returned by New for a non-positive fixed step or
	// a step cap below one.
	ErrInvalidOptions = errors.New("simloop: invalid options")

	// ErrAlreadyRunning is returned by Start on a running loop.
	ErrAlreadyRunning = errors.New("simloop: already running")

	// ErrHalted is returned by Start after the world failed unrecoverably.
	ErrHalted = errors.New("simloop: halted")

	// ErrOrphanPair is reported when a paired body no longer exists at
	// mirror time. The pair is dropped and the frame continues.
	ErrOrphanPair = errors.New("simloop: paired body no longer exists")
)

// StepError wraps a physics failure with the frame it happened in.
type StepError struct {
	Frame   int64
	Substep int
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("simloop: frame %d substep %d: %v", e.Frame, e.Substep, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
