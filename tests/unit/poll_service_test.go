package unit

import (
	"context"
	"errors"
	"testing"

	pollservice "choices/contexts/polling-core/poll-service"
	pollerrors "choices/contexts/polling-core/poll-service/domain/errors"
	httptransport "choices/contexts/polling-core/poll-service/transport/http"
)

func TestPollCreateDefaultsAndReplay(t *testing.T) {
	module := pollservice.NewInMemoryModule(nil, nil)

	req := httptransport.CreatePollRequest{
		Title:   "Transit budget priorities",
		Options: []string{"Bus lanes", "Bike lanes", "More trains"},
		Method:  "single",
	}
	first, err := module.Handler.CreatePollHandler(context.Background(), "user-1", "idem-poll-1", req)
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}
	if first.Status != "draft" {
		t.Fatalf("new poll should be draft, got %s", first.Status)
	}
	if len(first.Options) != 3 || first.Options[0].OptionID != "opt-01" || first.Options[2].OptionID != "opt-03" {
		t.Fatalf("unexpected option ids: %+v", first.Options)
	}
	if first.EpsilonBudget != 1.0 || first.KThreshold != 5 {
		t.Fatalf("expected privacy defaults, got epsilon=%f k=%d", first.EpsilonBudget, first.KThreshold)
	}

	second, err := module.Handler.CreatePollHandler(context.Background(), "user-1", "idem-poll-1", req)
	if err != nil {
		t.Fatalf("replay create failed: %v", err)
	}
	if !second.Replayed || second.PollID != first.PollID {
		t.Fatalf("expected idempotent replay of %s, got %+v", first.PollID, second)
	}
}

func TestPollCreateValidation(t *testing.T) {
	module := pollservice.NewInMemoryModule(nil, nil)

	_, err := module.Handler.CreatePollHandler(context.Background(), "user-1", "idem-poll-2", httptransport.CreatePollRequest{
		Title:   "One option only",
		Options: []string{"Yes"},
		Method:  "single",
	})
	if !errors.Is(err, pollerrors.ErrInvalidPollInput) {
		t.Fatalf("expected invalid input for single option, got %v", err)
	}

	_, err = module.Handler.CreatePollHandler(context.Background(), "user-1", "idem-poll-3", httptransport.CreatePollRequest{
		Title:   "Quadratic without budget",
		Options: []string{"A", "B"},
		Method:  "quadratic",
	})
	if !errors.Is(err, pollerrors.ErrInvalidPollInput) {
		t.Fatalf("quadratic polls need a credit budget, got %v", err)
	}

	_, err = module.Handler.CreatePollHandler(context.Background(), "user-1", "idem-poll-4", httptransport.CreatePollRequest{
		Title:   "Bad method",
		Options: []string{"A", "B"},
		Method:  "borda",
	})
	if !errors.Is(err, pollerrors.ErrInvalidPollInput) {
		t.Fatalf("expected invalid input for unknown method, got %v", err)
	}
}

func TestPollLifecycleTransitions(t *testing.T) {
	module := pollservice.NewInMemoryModule(nil, nil)

	created, err := module.Handler.CreatePollHandler(context.Background(), "user-1", "idem-poll-5", httptransport.CreatePollRequest{
		Title:   "Library hours",
		Options: []string{"Extend", "Keep"},
		Method:  "single",
	})
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}

	activated, err := module.Handler.ActivatePollHandler(context.Background(), created.PollID, "user-1", "idem-activate-1")
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if activated.Status != "active" || activated.ActivatedAt == "" {
		t.Fatalf("unexpected activated poll: %+v", activated)
	}

	closed, err := module.Handler.ClosePollHandler(context.Background(), created.PollID, "user-1", "idem-close-1")
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Status != "closed" || closed.ClosedAt == "" {
		t.Fatalf("unexpected closed poll: %+v", closed)
	}

	if _, err := module.Handler.ActivatePollHandler(context.Background(), created.PollID, "user-1", "idem-activate-2"); !errors.Is(err, pollerrors.ErrInvalidTransition) {
		t.Fatalf("closed poll must not reactivate, got %v", err)
	}
}

func TestPollListFiltersByStatus(t *testing.T) {
	module := pollservice.NewInMemoryModule(nil, nil)

	first, err := module.Handler.CreatePollHandler(context.Background(), "user-1", "idem-poll-6", httptransport.CreatePollRequest{
		Title:   "First",
		Options: []string{"A", "B"},
		Method:  "approval",
	})
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}
	if _, err := module.Handler.CreatePollHandler(context.Background(), "user-1", "idem-poll-7", httptransport.CreatePollRequest{
		Title:   "Second",
		Options: []string{"A", "B"},
		Method:  "single",
	}); err != nil {
		t.Fatalf("create poll failed: %v", err)
	}
	if _, err := module.Handler.ActivatePollHandler(context.Background(), first.PollID, "user-1", "idem-activate-3"); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	active, err := module.Handler.ListPollsHandler(context.Background(), "active")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active.Items) != 1 || active.Items[0].PollID != first.PollID {
		t.Fatalf("expected only the activated poll, got %+v", active.Items)
	}

	all, err := module.Handler.ListPollsHandler(context.Background(), "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all.Items) != 2 {
		t.Fatalf("expected 2 polls, got %d", len(all.Items))
	}
}
