package physics

import "errors"

var (
	// ErrInvalidBody is returned when a body description or a body's current
	// state cannot be simulated. The world is left unchanged.
	ErrInvalidBody = errors.New("physics: invalid body")

	// ErrUnknownBody is returned for handles that do not refer to a live body.
	ErrUnknownBody = errors.New("physics: unknown body")

	// ErrPartialStep is returned when a step produced non-finite state part way
	// through. The world is inconsistent and should not be stepped again
	// without a Reset.
	ErrPartialStep = errors.New("physics: step left world inconsistent")

	// ErrInvalidStep is returned for a non-positive or non-finite step size.
	ErrInvalidStep = errors.New("physics: invalid step size")
)
