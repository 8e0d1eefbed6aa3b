package errors

import "errors"

var (
	// ErrBudgetExceeded is returned before any data is released; the failed
	// request charges zero epsilon.
	ErrBudgetExceeded = errors.New("privacy budget exceeded")

	// ErrLedgerUnavailable covers any ambiguity about budget state. The layer
	// fails closed rather than disclosing with unknown remaining budget.
	ErrLedgerUnavailable = errors.New("privacy budget ledger unavailable")

	ErrInvalidDisclosureRequest = errors.New("invalid disclosure request")
	ErrQueryKeyRequired         = errors.New("query key is required")
	ErrPollNotFound             = errors.New("poll not found")
	ErrResultUnavailable        = errors.New("tabulation result unavailable")
	ErrConflict                 = errors.New("privacy ledger conflict")
)
