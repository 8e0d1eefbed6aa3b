package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	tabulationengine "choices/contexts/polling-core/tabulation-engine"
	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	tallyerrors "choices/contexts/polling-core/tabulation-engine/domain/errors"
	"choices/contexts/polling-core/tabulation-engine/ports"
)

func seedSinglePoll(module tabulationengine.Module) {
	module.Store.SetPoll(ports.PollProjection{
		PollID:    "poll-1",
		Status:    "closed",
		Method:    "single",
		OptionIDs: []string{"opt-01", "opt-02", "opt-03"},
	})
}

func addSingleBallot(module tabulationengine.Module, id string, voter string, option string, sequence int64, castAt time.Time) {
	module.Store.AddBallot(entities.Ballot{
		BallotID:  id,
		PollID:    "poll-1",
		VoterID:   voter,
		Method:    "single",
		Selection: entities.Selection{Option: option},
		Sequence:  sequence,
		CastAt:    castAt,
	})
}

func TestTallyComputeAndCache(t *testing.T) {
	module := tabulationengine.NewInMemoryModule(nil, nil)
	seedSinglePoll(module)
	base := time.Now().UTC().Add(-time.Hour)
	addSingleBallot(module, "b1", "v1", "opt-01", 0, base)
	addSingleBallot(module, "b2", "v2", "opt-01", 0, base.Add(time.Minute))
	addSingleBallot(module, "b3", "v3", "opt-02", 0, base.Add(2*time.Minute))

	first, err := module.Handler.GetTallyHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}
	if first.TotalBallots != 3 || first.CountedBallots != 3 {
		t.Fatalf("unexpected ballot counts: %+v", first)
	}
	if len(first.Winners) != 1 || first.Winners[0] != "opt-01" {
		t.Fatalf("unexpected winners: %v", first.Winners)
	}
	if first.ResultHash == "" {
		t.Fatalf("result hash missing")
	}

	// A second read is served from cache and returns the identical result.
	second, err := module.Handler.GetTallyHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("cached tally failed: %v", err)
	}
	if second.ResultHash != first.ResultHash || second.ComputedAt != first.ComputedAt {
		t.Fatalf("cached read should be identical: %+v vs %+v", first, second)
	}
}

func TestTallyRevoteCountsLatestOnly(t *testing.T) {
	module := tabulationengine.NewInMemoryModule(nil, nil)
	seedSinglePoll(module)
	base := time.Now().UTC().Add(-time.Hour)
	addSingleBallot(module, "b1", "v1", "opt-01", 0, base)
	addSingleBallot(module, "b2", "v1", "opt-02", 1, base.Add(time.Minute))

	result, err := module.Handler.GetTallyHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}
	if result.TotalBallots != 2 || result.CountedBallots != 1 {
		t.Fatalf("revote should count once: %+v", result)
	}
	for _, tally := range result.Tallies {
		switch tally.OptionID {
		case "opt-01":
			if tally.Count != 0 {
				t.Fatalf("superseded ballot still counted: %+v", tally)
			}
		case "opt-02":
			if tally.Count != 1 {
				t.Fatalf("latest ballot not counted: %+v", tally)
			}
		}
	}
}

func TestTallyInvalidateRecomputes(t *testing.T) {
	module := tabulationengine.NewInMemoryModule(nil, nil)
	seedSinglePoll(module)
	base := time.Now().UTC().Add(-time.Hour)
	addSingleBallot(module, "b1", "v1", "opt-01", 0, base)

	before, err := module.Results.GetOrCompute(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}

	addSingleBallot(module, "b2", "v2", "opt-02", 0, base.Add(time.Minute))
	if err := module.Results.Invalidate(context.Background(), "poll-1"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	after, err := module.Results.GetOrCompute(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if after.ResultHash == before.ResultHash {
		t.Fatalf("result should change after new ballot")
	}
	if after.TotalBallots != 2 {
		t.Fatalf("expected 2 ballots after invalidation, got %d", after.TotalBallots)
	}
}

func TestTallyUnknownPoll(t *testing.T) {
	module := tabulationengine.NewInMemoryModule(nil, nil)
	if _, err := module.Handler.GetTallyHandler(context.Background(), "missing"); !errors.Is(err, tallyerrors.ErrPollNotFound) {
		t.Fatalf("expected poll-not-found, got %v", err)
	}
}

func TestTallyRankedThroughModule(t *testing.T) {
	module := tabulationengine.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(ports.PollProjection{
		PollID:    "poll-1",
		Status:    "closed",
		Method:    "ranked",
		OptionIDs: []string{"opt-01", "opt-02", "opt-03"},
	})
	base := time.Now().UTC().Add(-time.Hour)
	rank := func(id string, voter string, ranking []string, offset time.Duration) {
		module.Store.AddBallot(entities.Ballot{
			BallotID:  id,
			PollID:    "poll-1",
			VoterID:   voter,
			Method:    "ranked",
			Selection: entities.Selection{Ranking: ranking},
			CastAt:    base.Add(offset),
		})
	}
	for i := 0; i < 5; i++ {
		rank("a"+string(rune('0'+i)), "va"+string(rune('0'+i)), []string{"opt-01", "opt-02", "opt-03"}, time.Duration(i)*time.Second)
	}
	for i := 0; i < 4; i++ {
		rank("b"+string(rune('0'+i)), "vb"+string(rune('0'+i)), []string{"opt-02", "opt-03", "opt-01"}, time.Duration(10+i)*time.Second)
	}
	for i := 0; i < 3; i++ {
		rank("c"+string(rune('0'+i)), "vc"+string(rune('0'+i)), []string{"opt-03", "opt-01", "opt-02"}, time.Duration(20+i)*time.Second)
	}

	result, err := module.Handler.GetTallyHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("ranked tally failed: %v", err)
	}
	if len(result.Rounds) != 2 {
		t.Fatalf("expected 2 elimination rounds, got %d", len(result.Rounds))
	}
	if len(result.Winners) != 1 || result.Winners[0] != "opt-01" {
		t.Fatalf("unexpected ranked winner: %v", result.Winners)
	}
}
