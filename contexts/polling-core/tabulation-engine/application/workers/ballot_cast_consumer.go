package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "choices/contexts/polling-core/tabulation-engine/application"
	"choices/contexts/polling-core/tabulation-engine/application/queries"
	"choices/contexts/polling-core/tabulation-engine/ports"
)

const (
	ballotCastTopic = "ballot.cast"
	defaultBallotCG = "tabulation-engine-ballot-cg"
)

// BallotCastConsumer keeps cached tallies consistent with the ballot log: each
// consumed cast invalidates the poll's cached result and warms a fresh one.
type BallotCastConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Results       queries.ResultsUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c BallotCastConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultBallotCG
	}
	if err := c.Subscriber.Subscribe(ctx, ballotCastTopic, group, c.handleBallotCast); err != nil {
		logger.Error("ballot cast consumer subscribe failed",
			"event", "tally_ballot_consumer_subscribe_failed",
			"module", "polling-core/tabulation-engine",
			"layer", "worker",
			"topic", ballotCastTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("ballot cast consumer subscription active",
		"event", "tally_ballot_consumer_started",
		"module", "polling-core/tabulation-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c BallotCastConsumer) handleBallotCast(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("ballot cast dedupe failed",
			"event", "tally_ballot_cast_dedupe_failed",
			"module", "polling-core/tabulation-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("ballot.cast replay skipped",
			"event", "tally_ballot_cast_replayed",
			"module", "polling-core/tabulation-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		PollID string `json:"poll_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("ballot.cast payload decode failed",
			"event", "tally_ballot_cast_decode_failed",
			"module", "polling-core/tabulation-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	pollID := strings.TrimSpace(payload.PollID)
	if pollID == "" {
		return nil
	}

	if err := c.Results.Invalidate(ctx, pollID); err != nil {
		logger.Error("ballot.cast cache invalidation failed",
			"event", "tally_ballot_cast_invalidate_failed",
			"module", "polling-core/tabulation-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"poll_id", pollID,
			"error", err.Error(),
		)
		return err
	}
	if _, err := c.Results.GetOrCompute(ctx, pollID); err != nil {
		// Warming is best-effort; the next read recomputes.
		logger.Warn("ballot.cast tally warm failed",
			"event", "tally_ballot_cast_warm_failed",
			"module", "polling-core/tabulation-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"poll_id", pollID,
			"error", err.Error(),
		)
	}

	logger.Info("ballot.cast consumed",
		"event", "tally_ballot_cast_consumed",
		"module", "polling-core/tabulation-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"poll_id", pollID,
	)
	return nil
}

func (c BallotCastConsumer) now() time.Time {
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	return now
}

func (c BallotCastConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
