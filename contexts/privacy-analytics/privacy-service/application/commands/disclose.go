package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "choices/contexts/privacy-analytics/privacy-service/application"
	"choices/contexts/privacy-analytics/privacy-service/domain/entities"
	domainerrors "choices/contexts/privacy-analytics/privacy-service/domain/errors"
	"choices/contexts/privacy-analytics/privacy-service/domain/kanon"
	"choices/contexts/privacy-analytics/privacy-service/domain/noise"
	"choices/contexts/privacy-analytics/privacy-service/ports"
)

type DiscloseCommand struct {
	PollID    string
	QueryKey  string
	Context   entities.DisclosureContext
	Epsilon   float64
	Attribute string
}

// DiscloseUseCase releases a privacy-filtered result view. Order matters:
// charge the ledger first (atomically, fail closed), then k-anonymity, then
// noise. The filtered view is never cached, so each disclosure maps to exactly
// one ledger charge or the idempotent replay of one.
type DiscloseUseCase struct {
	Ledger     ports.LedgerStore
	Polls      ports.PollReader
	Results    ports.ResultReader
	Attributes ports.AttributeReader
	Sampler    noise.Sampler
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc DiscloseUseCase) Disclose(ctx context.Context, cmd DiscloseCommand) (entities.Disclosure, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	if pollID == "" {
		return entities.Disclosure{}, domainerrors.ErrInvalidDisclosureRequest
	}
	if strings.TrimSpace(cmd.QueryKey) == "" {
		return entities.Disclosure{}, domainerrors.ErrQueryKeyRequired
	}
	disclosureContext := cmd.Context
	if disclosureContext == "" {
		disclosureContext = entities.ContextPublic
	}
	if !disclosureContext.Valid() {
		return entities.Disclosure{}, domainerrors.ErrInvalidDisclosureRequest
	}
	epsilon := cmd.Epsilon
	if epsilon < 0 {
		return entities.Disclosure{}, domainerrors.ErrInvalidDisclosureRequest
	}
	if epsilon == 0 || epsilon > disclosureContext.EpsilonCap() {
		epsilon = disclosureContext.EpsilonCap()
	}

	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return entities.Disclosure{}, err
	}

	result, err := uc.Results.GetResult(ctx, pollID)
	if err != nil {
		logger.Error("disclosure result read failed",
			"event", "disclosure_result_read_failed",
			"module", "privacy-analytics/privacy-service",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return entities.Disclosure{}, domainerrors.ErrResultUnavailable
	}

	attribute := strings.TrimSpace(strings.ToLower(cmd.Attribute))
	var bucketCounts map[string]int
	if attribute != "" {
		if uc.Attributes == nil {
			return entities.Disclosure{}, domainerrors.ErrInvalidDisclosureRequest
		}
		bucketCounts, err = uc.Attributes.CountByAttribute(ctx, pollID, attribute)
		if err != nil {
			return entities.Disclosure{}, err
		}
	}

	entryID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Disclosure{}, domainerrors.ErrLedgerUnavailable
	}
	now := uc.now()
	spend, err := uc.Ledger.Spend(ctx, ports.SpendRequest{
		PollID:    pollID,
		Allocated: poll.EpsilonBudget,
		Entry: entities.LedgerEntry{
			EntryID:     entryID,
			PollID:      pollID,
			QueryKey:    strings.TrimSpace(cmd.QueryKey),
			Context:     disclosureContext,
			Epsilon:     epsilon,
			RequestedAt: now,
		},
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrBudgetExceeded) {
			logger.Warn("disclosure rejected over budget",
				"event", "disclosure_budget_exceeded",
				"module", "privacy-analytics/privacy-service",
				"layer", "application",
				"poll_id", pollID,
				"context", string(disclosureContext),
				"epsilon", epsilon,
			)
			return entities.Disclosure{}, err
		}
		// Ambiguous ledger state: fail closed, release nothing.
		logger.Error("disclosure ledger spend failed",
			"event", "disclosure_ledger_failed",
			"module", "privacy-analytics/privacy-service",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return entities.Disclosure{}, domainerrors.ErrLedgerUnavailable
	}

	kThreshold := poll.KThreshold
	if kThreshold < 1 {
		kThreshold = 1
	}

	disclosure := entities.Disclosure{
		PollID:      pollID,
		Context:     disclosureContext,
		Epsilon:     epsilon,
		Attribute:   attribute,
		KThreshold:  kThreshold,
		Replayed:    spend.Replayed,
		Remaining:   spend.Ledger.Remaining(),
		DisclosedAt: now,
	}

	disclosure.Tallies = make([]entities.NoisedTally, 0, len(result.Tallies))
	for _, tally := range result.Tallies {
		noised, err := uc.addNoise(tally.Count, epsilon)
		if err != nil {
			return entities.Disclosure{}, domainerrors.ErrLedgerUnavailable
		}
		disclosure.Tallies = append(disclosure.Tallies, entities.NoisedTally{
			OptionID: tally.OptionID,
			Count:    noised,
		})
	}

	if attribute != "" {
		buckets, touched := kanon.Apply(bucketCounts, kThreshold)
		disclosure.SuppressedBucket = touched
		disclosure.Buckets = make([]entities.BreakdownBucket, 0, len(buckets))
		for _, bucket := range buckets {
			noised, err := uc.addNoise(float64(bucket.Count), epsilon)
			if err != nil {
				return entities.Disclosure{}, domainerrors.ErrLedgerUnavailable
			}
			disclosure.Buckets = append(disclosure.Buckets, entities.BreakdownBucket{
				Value: bucket.Value,
				Count: noised,
			})
		}
	}

	logger.Info("disclosure released",
		"event", "disclosure_released",
		"module", "privacy-analytics/privacy-service",
		"layer", "application",
		"poll_id", pollID,
		"context", string(disclosureContext),
		"epsilon", epsilon,
		"replayed", spend.Replayed,
		"remaining_epsilon", disclosure.Remaining,
	)
	return disclosure, nil
}

// addNoise applies Laplace noise with sensitivity 1 (one voter moves any count
// by at most one) and clamps the released value at zero.
func (uc DiscloseUseCase) addNoise(count float64, epsilon float64) (float64, error) {
	sampler := uc.Sampler
	if sampler == nil {
		sampler = noise.CryptoSampler{}
	}
	sample, err := sampler.Laplace(1, epsilon)
	if err != nil {
		return 0, err
	}
	return noise.Clamp(count + sample), nil
}

func (uc DiscloseUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
