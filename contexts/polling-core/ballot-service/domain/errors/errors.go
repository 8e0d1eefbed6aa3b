package errors

import "errors"

var (
	ErrMalformedBallot        = errors.New("malformed ballot")
	ErrOptionNotInPoll        = errors.New("option not in poll")
	ErrCreditBudgetExceeded   = errors.New("credit budget exceeded")
	ErrScoreOutOfRange        = errors.New("score out of range")
	ErrDuplicateRanking       = errors.New("duplicate option in ranking")
	ErrPollNotFound           = errors.New("poll not found")
	ErrPollNotActive          = errors.New("poll is not accepting ballots")
	ErrDuplicateBallot        = errors.New("voter already cast a ballot for this poll")
	ErrBallotNotFound         = errors.New("ballot not found")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
	ErrConflict               = errors.New("ballot conflict")
)
