package ports

import (
	"context"
	"time"

	eventsv1 "choices/contracts/gen/events/v1"

	"choices/contexts/polling-core/tabulation-engine/domain/entities"
)

// EventEnvelope is the canonical cross-context event shape.
type EventEnvelope = eventsv1.Envelope

type BallotReader interface {
	ListBallotsByPoll(ctx context.Context, pollID string) ([]entities.Ballot, error)
}

// PollProjection is the tabulation view of poll-service state.
type PollProjection struct {
	PollID    string
	Status    string
	Method    string
	OptionIDs []string
	MinScore  float64
	MaxScore  float64
}

type PollReader interface {
	GetPoll(ctx context.Context, pollID string) (PollProjection, error)
}

// ResultCache stores the pure tabulation result keyed by poll id. Privacy
// filtered views are never cached; only the raw result is.
type ResultCache interface {
	Get(ctx context.Context, pollID string) (entities.TabulationResult, bool, error)
	Put(ctx context.Context, result entities.TabulationResult, ttl time.Duration) error
	Invalidate(ctx context.Context, pollID string) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

type Clock interface {
	Now() time.Time
}
