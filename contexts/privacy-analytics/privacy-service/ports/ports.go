package ports

import (
	"context"
	"time"

	"choices/contexts/privacy-analytics/privacy-service/domain/entities"
)

// SpendRequest charges one disclosure against a poll's budget. Allocated
// seeds the ledger lazily on first spend for the poll.
type SpendRequest struct {
	PollID    string
	Allocated float64
	Entry     entities.LedgerEntry
}

type SpendResult struct {
	Ledger   entities.BudgetLedger
	Replayed bool
}

// LedgerStore is the serialization point for epsilon accounting. Spend must be
// atomic: the budget check and the increment happen as one operation, and a
// request that would exceed the budget charges nothing. A replayed QueryKey
// returns Replayed without charging again.
type LedgerStore interface {
	Spend(ctx context.Context, req SpendRequest) (SpendResult, error)
	GetLedger(ctx context.Context, pollID string) (entities.BudgetLedger, []entities.LedgerEntry, error)
}

// PollProjection is the privacy view of poll-service state.
type PollProjection struct {
	PollID        string
	Status        string
	Privacy       string
	EpsilonBudget float64
	KThreshold    int
}

type PollReader interface {
	GetPoll(ctx context.Context, pollID string) (PollProjection, error)
}

type ResultTally struct {
	OptionID string
	Count    float64
}

// ResultProjection is the raw tabulation output this service filters before
// release.
type ResultProjection struct {
	PollID         string
	Method         string
	Tallies        []ResultTally
	CountedBallots int
}

type ResultReader interface {
	GetResult(ctx context.Context, pollID string) (ResultProjection, error)
}

// AttributeReader counts effective (latest per voter) ballots per value of one
// demographic attribute.
type AttributeReader interface {
	CountByAttribute(ctx context.Context, pollID string, attribute string) (map[string]int, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
