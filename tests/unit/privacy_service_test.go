package unit

import (
	"context"
	"errors"
	"testing"

	privacyservice "choices/contexts/privacy-analytics/privacy-service"
	"choices/contexts/privacy-analytics/privacy-service/adapters/memory"
	"choices/contexts/privacy-analytics/privacy-service/domain/entities"
	privacyerrors "choices/contexts/privacy-analytics/privacy-service/domain/errors"
	"choices/contexts/privacy-analytics/privacy-service/ports"
	httptransport "choices/contexts/privacy-analytics/privacy-service/transport/http"
)

// zeroSampler disables noise so tests can assert exact post-filter counts.
type zeroSampler struct{}

func (zeroSampler) Laplace(_ float64, _ float64) (float64, error) {
	return 0, nil
}

type failingLedger struct{}

func (failingLedger) Spend(_ context.Context, _ ports.SpendRequest) (ports.SpendResult, error) {
	return ports.SpendResult{}, errors.New("ledger timeout")
}

func (failingLedger) GetLedger(_ context.Context, _ string) (entities.BudgetLedger, []entities.LedgerEntry, error) {
	return entities.BudgetLedger{}, nil, errors.New("ledger timeout")
}

func newPrivacyModule(store *memory.Store) privacyservice.Module {
	return privacyservice.NewModule(privacyservice.Dependencies{
		Ledger:     store,
		Polls:      store,
		Results:    store,
		Attributes: store,
		Sampler:    zeroSampler{},
		Clock:      store,
		IDGen:      store,
	})
}

func seedClosedPoll(store *memory.Store, budget float64, kThreshold int) {
	store.SetPoll(ports.PollProjection{
		PollID:        "poll-1",
		Status:        "closed",
		Privacy:       "private",
		EpsilonBudget: budget,
		KThreshold:    kThreshold,
	})
	store.SetResult(ports.ResultProjection{
		PollID: "poll-1",
		Method: "single",
		Tallies: []ports.ResultTally{
			{OptionID: "opt-01", Count: 12},
			{OptionID: "opt-02", Count: 7},
		},
		CountedBallots: 19,
	})
}

func TestDisclosureChargesBudgetAndReplays(t *testing.T) {
	store := memory.NewStore()
	module := newPrivacyModule(store)
	seedClosedPoll(store, 1.0, 5)

	req := httptransport.DiscloseRequest{Context: "internal", Epsilon: 0.25}
	first, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-1", req)
	if err != nil {
		t.Fatalf("disclose failed: %v", err)
	}
	if first.Replayed || first.Epsilon != 0.25 || first.RemainingEpsilon != 0.75 {
		t.Fatalf("unexpected disclosure %+v", first)
	}
	if len(first.Tallies) != 2 || first.Tallies[0].Count != 12 || first.Tallies[1].Count != 7 {
		t.Fatalf("zero-noise tallies should be exact, got %+v", first.Tallies)
	}

	second, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-1", req)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed || second.RemainingEpsilon != 0.75 {
		t.Fatalf("replay must not charge again, got %+v", second)
	}

	budget, err := module.Handler.BudgetHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("budget read failed: %v", err)
	}
	if budget.Consumed != 0.25 || len(budget.Entries) != 1 {
		t.Fatalf("expected a single 0.25 charge, got %+v", budget)
	}

	// Same key with a different epsilon is ambiguous ledger state: fail
	// closed rather than guess which charge the caller meant.
	_, err = module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-1", httptransport.DiscloseRequest{
		Context: "internal",
		Epsilon: 0.5,
	})
	if !errors.Is(err, privacyerrors.ErrLedgerUnavailable) {
		t.Fatalf("expected fail-closed on key reuse, got %v", err)
	}
}

func TestDisclosureClampsEpsilonToContextCap(t *testing.T) {
	store := memory.NewStore()
	module := newPrivacyModule(store)
	seedClosedPoll(store, 1.0, 5)

	resp, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-cap", httptransport.DiscloseRequest{
		Context: "public",
		Epsilon: 0.9,
	})
	if err != nil {
		t.Fatalf("disclose failed: %v", err)
	}
	if resp.Epsilon != 0.25 || resp.RemainingEpsilon != 0.75 {
		t.Fatalf("public context should clamp to 0.25, got %+v", resp)
	}

	// Omitted epsilon and context default to the public cap.
	defaulted, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-default", httptransport.DiscloseRequest{})
	if err != nil {
		t.Fatalf("defaulted disclose failed: %v", err)
	}
	if defaulted.Context != "public" || defaulted.Epsilon != 0.25 {
		t.Fatalf("unexpected defaults %+v", defaulted)
	}
}

func TestDisclosureBudgetExhaustedChargesNothing(t *testing.T) {
	store := memory.NewStore()
	module := newPrivacyModule(store)
	seedClosedPoll(store, 0.5, 5)

	if _, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-drain", httptransport.DiscloseRequest{
		Context: "internal",
		Epsilon: 0.5,
	}); err != nil {
		t.Fatalf("draining disclose failed: %v", err)
	}

	_, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-over", httptransport.DiscloseRequest{
		Context: "internal",
		Epsilon: 0.25,
	})
	if !errors.Is(err, privacyerrors.ErrBudgetExceeded) {
		t.Fatalf("expected budget exceeded, got %v", err)
	}

	budget, err := module.Handler.BudgetHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("budget read failed: %v", err)
	}
	if budget.Consumed != 0.5 || len(budget.Entries) != 1 {
		t.Fatalf("rejected disclosure must charge nothing, got %+v", budget)
	}
}

func TestDisclosureAttributeBucketsSuppressed(t *testing.T) {
	store := memory.NewStore()
	module := newPrivacyModule(store)
	seedClosedPoll(store, 1.0, 5)
	store.SetAttributeCounts("poll-1", "district", map[string]int{
		"north": 10,
		"south": 3,
		"east":  4,
	})

	resp, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-attr", httptransport.DiscloseRequest{
		Context:   "internal",
		Epsilon:   0.25,
		Attribute: "District",
	})
	if err != nil {
		t.Fatalf("attribute disclose failed: %v", err)
	}
	if !resp.SuppressedBucket || resp.KThreshold != 5 {
		t.Fatalf("small buckets should be suppressed, got %+v", resp)
	}
	if len(resp.Buckets) != 2 {
		t.Fatalf("expected 2 released buckets, got %+v", resp.Buckets)
	}
	if resp.Buckets[0].Value != "north" || resp.Buckets[0].Count != 10 {
		t.Fatalf("unexpected first bucket %+v", resp.Buckets[0])
	}
	if resp.Buckets[1].Value != "other" || resp.Buckets[1].Count != 7 {
		t.Fatalf("small buckets should merge into other, got %+v", resp.Buckets[1])
	}
}

func TestDisclosureValidation(t *testing.T) {
	store := memory.NewStore()
	module := newPrivacyModule(store)
	seedClosedPoll(store, 1.0, 5)

	if _, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-neg", httptransport.DiscloseRequest{
		Context: "internal",
		Epsilon: -0.1,
	}); !errors.Is(err, privacyerrors.ErrInvalidDisclosureRequest) {
		t.Fatalf("negative epsilon must be rejected, got %v", err)
	}

	if _, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "", httptransport.DiscloseRequest{
		Context: "internal",
	}); !errors.Is(err, privacyerrors.ErrQueryKeyRequired) {
		t.Fatalf("missing query key must be rejected, got %v", err)
	}

	if _, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-ctx", httptransport.DiscloseRequest{
		Context: "partner",
	}); !errors.Is(err, privacyerrors.ErrInvalidDisclosureRequest) {
		t.Fatalf("unknown context must be rejected, got %v", err)
	}

	if _, err := module.Handler.DiscloseHandler(context.Background(), "missing", "query-miss", httptransport.DiscloseRequest{
		Context: "internal",
	}); !errors.Is(err, privacyerrors.ErrPollNotFound) {
		t.Fatalf("unknown poll must be rejected, got %v", err)
	}
}

func TestDisclosureMissingResult(t *testing.T) {
	store := memory.NewStore()
	module := newPrivacyModule(store)
	store.SetPoll(ports.PollProjection{
		PollID:        "poll-1",
		Status:        "active",
		EpsilonBudget: 1.0,
		KThreshold:    5,
	})

	_, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-early", httptransport.DiscloseRequest{
		Context: "internal",
	})
	if !errors.Is(err, privacyerrors.ErrResultUnavailable) {
		t.Fatalf("expected result unavailable, got %v", err)
	}
}

func TestDisclosureFailsClosedOnLedgerError(t *testing.T) {
	store := memory.NewStore()
	seedClosedPoll(store, 1.0, 5)
	module := privacyservice.NewModule(privacyservice.Dependencies{
		Ledger:     failingLedger{},
		Polls:      store,
		Results:    store,
		Attributes: store,
		Sampler:    zeroSampler{},
		Clock:      store,
		IDGen:      store,
	})

	_, err := module.Handler.DiscloseHandler(context.Background(), "poll-1", "query-down", httptransport.DiscloseRequest{
		Context: "internal",
	})
	if !errors.Is(err, privacyerrors.ErrLedgerUnavailable) {
		t.Fatalf("ledger failures must fail closed, got %v", err)
	}
}

func TestBudgetForUndisclosedPoll(t *testing.T) {
	store := memory.NewStore()
	module := newPrivacyModule(store)
	seedClosedPoll(store, 1.0, 5)

	budget, err := module.Handler.BudgetHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("budget read failed: %v", err)
	}
	if budget.Allocated != 1.0 || budget.Consumed != 0 || budget.RemainingEpsilon != 1.0 {
		t.Fatalf("undisclosed poll should report full allocation, got %+v", budget)
	}
	if len(budget.Entries) != 0 {
		t.Fatalf("expected empty charge history, got %+v", budget.Entries)
	}

	if _, err := module.Handler.BudgetHandler(context.Background(), "missing"); !errors.Is(err, privacyerrors.ErrPollNotFound) {
		t.Fatalf("expected poll not found, got %v", err)
	}
}
