package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "choices/contexts/polling-core/ballot-service/application"
	"choices/contexts/polling-core/ballot-service/domain/entities"
	domainerrors "choices/contexts/polling-core/ballot-service/domain/errors"
	"choices/contexts/polling-core/ballot-service/domain/merkle"
	"choices/contexts/polling-core/ballot-service/domain/validation"
	"choices/contexts/polling-core/ballot-service/ports"
)

type CastBallotCommand struct {
	VoterID        string
	IdempotencyKey string
	PollID         string
	Selection      entities.Selection
	Attributes     map[string]string
}

type CastBallotResult struct {
	Ballot   entities.Ballot
	Revote   bool
	Replayed bool
}

// CastUseCase is the ballot write path: validate against the poll schema,
// append with the correct sequence, emit ballot.cast through the outbox, and
// invalidate the cached tally.
type CastUseCase struct {
	Ballots        ports.BallotRepository
	Polls          ports.PollReader
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Invalidator    ports.TallyInvalidator
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func (uc CastUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	pollID := strings.TrimSpace(cmd.PollID)
	logger.Info("ballot cast processing started",
		"event", "ballot_cast_started",
		"module", "polling-core/ballot-service",
		"layer", "application",
		"poll_id", pollID,
	)

	if voterID == "" || pollID == "" {
		return CastBallotResult{}, domainerrors.ErrMalformedBallot
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CastBallotResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashCastCommand(cmd)
	if record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now); err != nil {
		return CastBallotResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return CastBallotResult{}, domainerrors.ErrIdempotencyConflict
		}
		ballot, err := uc.Ballots.GetBallot(ctx, record.BallotID)
		if err != nil {
			return CastBallotResult{}, err
		}
		logger.Info("ballot cast replayed",
			"event", "ballot_cast_replayed",
			"module", "polling-core/ballot-service",
			"layer", "application",
			"poll_id", pollID,
			"ballot_id", ballot.BallotID,
		)
		return CastBallotResult{Ballot: ballot, Revote: ballot.Sequence > 0, Replayed: true}, nil
	}

	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !strings.EqualFold(poll.Status, "active") {
		return CastBallotResult{}, domainerrors.ErrPollNotActive
	}

	schema := validation.PollSchema{
		PollID:       poll.PollID,
		Method:       poll.Method,
		OptionIDs:    poll.OptionIDs,
		AllowRevote:  poll.AllowRevote,
		CreditBudget: poll.CreditBudget,
		MinScore:     poll.MinScore,
		MaxScore:     poll.MaxScore,
	}
	selection, err := validation.ValidateSelection(schema, cmd.Selection)
	if err != nil {
		logger.Warn("ballot cast validation failed",
			"event", "ballot_cast_validation_failed",
			"module", "polling-core/ballot-service",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return CastBallotResult{}, err
	}

	var sequence int64
	revote := false
	if latest, found, err := uc.Ballots.GetLatestBallot(ctx, pollID, voterID); err != nil {
		return CastBallotResult{}, err
	} else if found {
		if !poll.AllowRevote {
			return CastBallotResult{}, domainerrors.ErrDuplicateBallot
		}
		sequence = latest.Sequence + 1
		revote = true
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	ballot := entities.Ballot{
		BallotID:   ballotID,
		PollID:     pollID,
		VoterID:    voterID,
		Method:     poll.Method,
		Selection:  selection,
		Attributes: normalizeAttributes(cmd.Attributes),
		Sequence:   sequence,
		CastAt:     now,
	}
	ballot.MerkleLeaf = merkle.LeafHash(ballot)
	ballot.VerificationToken = verificationToken(ballot)

	if err := uc.Ballots.AppendBallot(ctx, ballot); err != nil {
		// The repository's uniqueness constraint is the serialization point
		// for concurrent casts from the same voter.
		if errors.Is(err, domainerrors.ErrDuplicateBallot) {
			logger.Warn("ballot cast lost duplicate race",
				"event", "ballot_cast_duplicate_race",
				"module", "polling-core/ballot-service",
				"layer", "application",
				"poll_id", pollID,
			)
		}
		return CastBallotResult{}, err
	}

	envelope, err := newBallotEnvelope(ballotID, "ballot.cast", pollID, now, map[string]any{
		"ballot_id":   ballot.BallotID,
		"poll_id":     ballot.PollID,
		"voter_id":    ballot.VoterID,
		"method":      ballot.Method,
		"sequence":    ballot.Sequence,
		"revote":      revote,
		"merkle_leaf": ballot.MerkleLeaf,
		"occurred_at": now.Format(time.RFC3339),
	})
	if err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		return CastBallotResult{}, err
	}

	if uc.Invalidator != nil {
		if err := uc.Invalidator.InvalidateTally(ctx, pollID); err != nil {
			// Stale cache entries age out on recompute; the cast itself stands.
			logger.Warn("tally invalidation failed",
				"event", "ballot_cast_invalidate_failed",
				"module", "polling-core/ballot-service",
				"layer", "application",
				"poll_id", pollID,
				"error", err.Error(),
			)
		}
	}

	if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         strings.TrimSpace(cmd.IdempotencyKey),
		RequestHash: requestHash,
		BallotID:    ballot.BallotID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	}); err != nil {
		return CastBallotResult{}, err
	}

	logger.Info("ballot cast accepted",
		"event", "ballot_cast_accepted",
		"module", "polling-core/ballot-service",
		"layer", "application",
		"poll_id", pollID,
		"ballot_id", ballot.BallotID,
		"sequence", ballot.Sequence,
		"revote", revote,
	)
	return CastBallotResult{Ballot: ballot, Revote: revote}, nil
}

func (uc CastUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc CastUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func normalizeAttributes(attributes map[string]string) map[string]string {
	if len(attributes) == 0 {
		return nil
	}
	normalized := make(map[string]string, len(attributes))
	for key, value := range attributes {
		key = strings.TrimSpace(strings.ToLower(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		normalized[key] = value
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

func verificationToken(ballot entities.Ballot) string {
	sum := sha256.Sum256([]byte(ballot.BallotID + ":" + ballot.MerkleLeaf))
	return hex.EncodeToString(sum[:16])
}

func hashCastCommand(cmd CastBallotCommand) string {
	attributeKeys := make([]string, 0, len(cmd.Attributes))
	for key := range cmd.Attributes {
		attributeKeys = append(attributeKeys, key)
	}
	sort.Strings(attributeKeys)
	attributes := make([]string, 0, len(attributeKeys))
	for _, key := range attributeKeys {
		attributes = append(attributes, key+"="+cmd.Attributes[key])
	}
	payload := map[string]any{
		"voter_id":   strings.TrimSpace(cmd.VoterID),
		"poll_id":    strings.TrimSpace(cmd.PollID),
		"selection":  cmd.Selection,
		"attributes": attributes,
		"op":         "cast_ballot",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
