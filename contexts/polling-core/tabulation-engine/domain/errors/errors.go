package errors

import "errors"

var (
	// ErrShapeMismatch means a ballot reached a strategy whose payload shape it
	// does not satisfy. The validator should make this unreachable, so it is
	// treated as an internal invariant violation rather than voter input error.
	ErrShapeMismatch = errors.New("ballot shape does not match voting method")

	ErrUnsupportedMethod = errors.New("unsupported voting method")
	ErrPollNotFound      = errors.New("poll not found")
	ErrConflict          = errors.New("tabulation conflict")
)
