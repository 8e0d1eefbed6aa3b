package entities

import "time"

// DisclosureContext grades how much the requester is trusted. Public callers
// get the strictest epsilon cap; a poll owner's internal dashboard the loosest.
type DisclosureContext string

const (
	ContextPublic   DisclosureContext = "public"
	ContextLoggedIn DisclosureContext = "logged_in"
	ContextInternal DisclosureContext = "internal"
)

func (c DisclosureContext) Valid() bool {
	switch c {
	case ContextPublic, ContextLoggedIn, ContextInternal:
		return true
	default:
		return false
	}
}

// EpsilonCap bounds how much budget a single disclosure may charge in this
// context. Requests above the cap are clamped, not rejected.
func (c DisclosureContext) EpsilonCap() float64 {
	switch c {
	case ContextInternal:
		return 1.0
	case ContextLoggedIn:
		return 0.5
	default:
		return 0.25
	}
}

// BudgetLedger tracks cumulative epsilon spend per poll. Consumed only ever
// grows, and never past Allocated.
type BudgetLedger struct {
	PollID    string
	Allocated float64
	Consumed  float64
	UpdatedAt time.Time
}

func (l BudgetLedger) Remaining() float64 {
	remaining := l.Allocated - l.Consumed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LedgerEntry records one charged disclosure. QueryKey is the idempotency
// identity: a retried identical query reuses its entry instead of charging
// the budget again.
type LedgerEntry struct {
	EntryID     string
	PollID      string
	QueryKey    string
	Context     DisclosureContext
	Epsilon     float64
	RequestedAt time.Time
}
