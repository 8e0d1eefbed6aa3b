package queries

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "choices/contexts/polling-core/tabulation-engine/application"
	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	"choices/contexts/polling-core/tabulation-engine/domain/tally"
	"choices/contexts/polling-core/tabulation-engine/ports"
)

// ResultsUseCase computes tabulation results on demand with a read-through
// cache. The cached value is always the raw, pre-privacy result.
type ResultsUseCase struct {
	Ballots  ports.BallotReader
	Polls    ports.PollReader
	Cache    ports.ResultCache
	Clock    ports.Clock
	CacheTTL time.Duration
	Logger   *slog.Logger
}

func (uc ResultsUseCase) GetOrCompute(ctx context.Context, pollID string) (entities.TabulationResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID = strings.TrimSpace(pollID)

	if uc.Cache != nil {
		if cached, found, err := uc.Cache.Get(ctx, pollID); err != nil {
			// Cache trouble degrades to recompute, never to a stale answer.
			logger.Warn("tally cache read failed",
				"event", "tally_cache_read_failed",
				"module", "polling-core/tabulation-engine",
				"layer", "application",
				"poll_id", pollID,
				"error", err.Error(),
			)
		} else if found {
			return cached, nil
		}
	}

	result, err := uc.Compute(ctx, pollID)
	if err != nil {
		return entities.TabulationResult{}, err
	}

	if uc.Cache != nil {
		if err := uc.Cache.Put(ctx, result, uc.resolveCacheTTL()); err != nil {
			logger.Warn("tally cache write failed",
				"event", "tally_cache_write_failed",
				"module", "polling-core/tabulation-engine",
				"layer", "application",
				"poll_id", pollID,
				"error", err.Error(),
			)
		}
	}
	return result, nil
}

// Compute runs tabulation against the current ballot set, bypassing the cache.
func (uc ResultsUseCase) Compute(ctx context.Context, pollID string) (entities.TabulationResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID = strings.TrimSpace(pollID)

	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return entities.TabulationResult{}, err
	}
	ballots, err := uc.Ballots.ListBallotsByPoll(ctx, pollID)
	if err != nil {
		return entities.TabulationResult{}, err
	}

	counted := tally.DedupeLatest(ballots)
	outcome, err := tally.Compute(tally.Spec{
		PollID:    poll.PollID,
		Method:    poll.Method,
		OptionIDs: poll.OptionIDs,
		MinScore:  poll.MinScore,
		MaxScore:  poll.MaxScore,
	}, counted)
	if err != nil {
		logger.Error("tabulation failed",
			"event", "tabulation_failed",
			"module", "polling-core/tabulation-engine",
			"layer", "application",
			"poll_id", pollID,
			"method", poll.Method,
			"error", err.Error(),
		)
		return entities.TabulationResult{}, err
	}

	result := entities.TabulationResult{
		PollID:           poll.PollID,
		Method:           poll.Method,
		Tallies:          outcome.Tallies,
		Rounds:           outcome.Rounds,
		Winners:          outcome.Winners,
		Tie:              outcome.Tie,
		TotalBallots:     len(ballots),
		CountedBallots:   outcome.Counted,
		ExhaustedBallots: outcome.Exhausted,
		ComputedAt:       uc.now(),
	}
	result.ResultHash = hashResult(result)

	logger.Info("tabulation computed",
		"event", "tabulation_computed",
		"module", "polling-core/tabulation-engine",
		"layer", "application",
		"poll_id", pollID,
		"method", poll.Method,
		"counted_ballots", result.CountedBallots,
		"result_hash", result.ResultHash,
	)
	return result, nil
}

func (uc ResultsUseCase) Invalidate(ctx context.Context, pollID string) error {
	if uc.Cache == nil {
		return nil
	}
	return uc.Cache.Invalidate(ctx, strings.TrimSpace(pollID))
}

func (uc ResultsUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc ResultsUseCase) resolveCacheTTL() time.Duration {
	if uc.CacheTTL <= 0 {
		return 5 * time.Minute
	}
	return uc.CacheTTL
}

// hashResult covers everything except ComputedAt and the hash field itself, so
// recomputing over an unchanged ballot set is detectable as a no-op.
func hashResult(result entities.TabulationResult) string {
	stripped := result
	stripped.ResultHash = ""
	stripped.ComputedAt = time.Time{}
	raw, _ := json.Marshal(stripped)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
