package ports

import (
	"context"
	"time"

	eventsv1 "choices/contracts/gen/events/v1"

	"choices/contexts/polling-core/ballot-service/domain/entities"
)

// EventEnvelope is the canonical cross-context event shape.
type EventEnvelope = eventsv1.Envelope

type BallotRepository interface {
	// AppendBallot is append-only. Adapters enforce the one-effective-ballot
	// constraint: a second sequence-0 ballot for the same (poll, voter) pair
	// must fail with ErrDuplicateBallot.
	AppendBallot(ctx context.Context, ballot entities.Ballot) error
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error)
	GetLatestBallot(ctx context.Context, pollID string, voterID string) (entities.Ballot, bool, error)
	ListBallotsByPoll(ctx context.Context, pollID string) ([]entities.Ballot, error)
}

// PollProjection is the ballot-service view of poll-service state, read from
// the polls table (or seeded directly in memory adapters).
type PollProjection struct {
	PollID       string
	Status       string
	Method       string
	OptionIDs    []string
	AllowRevote  bool
	CreditBudget int
	MinScore     float64
	MaxScore     float64
}

type PollReader interface {
	GetPoll(ctx context.Context, pollID string) (PollProjection, error)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	BallotID    string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

// TallyInvalidator drops the cached tabulation result for a poll after its
// ballot set changes.
type TallyInvalidator interface {
	InvalidateTally(ctx context.Context, pollID string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
