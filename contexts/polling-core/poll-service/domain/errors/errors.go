package errors

import "errors"

var (
	ErrInvalidPollInput       = errors.New("invalid poll input")
	ErrPollNotFound           = errors.New("poll not found")
	ErrInvalidTransition      = errors.New("invalid poll status transition")
	ErrPollClosed             = errors.New("poll is closed")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
	ErrConflict               = errors.New("poll conflict")
)
