package unit

import (
	"context"
	"errors"
	"testing"

	ballotservice "choices/contexts/polling-core/ballot-service"
	balloterrors "choices/contexts/polling-core/ballot-service/domain/errors"
	"choices/contexts/polling-core/ballot-service/domain/merkle"
	"choices/contexts/polling-core/ballot-service/ports"
	httptransport "choices/contexts/polling-core/ballot-service/transport/http"
)

func activeSinglePoll(allowRevote bool) ports.PollProjection {
	return ports.PollProjection{
		PollID:      "poll-1",
		Status:      "active",
		Method:      "single",
		OptionIDs:   []string{"opt-01", "opt-02", "opt-03"},
		AllowRevote: allowRevote,
	}
}

func TestCastBallotAndReplay(t *testing.T) {
	module := ballotservice.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(activeSinglePoll(false))

	req := httptransport.CastBallotRequest{PollID: "poll-1", Option: "opt-02"}
	first, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-cast-1", req)
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if first.Sequence != 0 || first.Revote {
		t.Fatalf("first cast should be sequence 0, got %+v", first)
	}
	if first.MerkleLeaf == "" || first.VerificationToken == "" {
		t.Fatalf("expected commitment leaf and verification token, got %+v", first)
	}

	second, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-cast-1", req)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed || second.BallotID != first.BallotID {
		t.Fatalf("expected idempotent replay of %s, got %+v", first.BallotID, second)
	}

	_, err = module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-cast-1", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-03",
	})
	if !errors.Is(err, balloterrors.ErrIdempotencyConflict) {
		t.Fatalf("same key with different payload must conflict, got %v", err)
	}
}

func TestCastBallotDuplicateWithoutRevote(t *testing.T) {
	module := ballotservice.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(activeSinglePoll(false))

	if _, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-cast-2", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-01",
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	_, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-cast-3", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-02",
	})
	if !errors.Is(err, balloterrors.ErrDuplicateBallot) {
		t.Fatalf("expected duplicate ballot, got %v", err)
	}
}

func TestCastBallotRevoteSupersedes(t *testing.T) {
	module := ballotservice.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(activeSinglePoll(true))

	if _, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-cast-4", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-01",
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	revote, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-cast-5", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-03",
	})
	if err != nil {
		t.Fatalf("revote failed: %v", err)
	}
	if !revote.Revote || revote.Sequence != 1 {
		t.Fatalf("revote should append sequence 1, got %+v", revote)
	}
}

func TestCastBallotRejectsInactivePoll(t *testing.T) {
	module := ballotservice.NewInMemoryModule(nil, nil)
	poll := activeSinglePoll(false)
	poll.Status = "draft"
	module.Store.SetPoll(poll)

	_, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-cast-6", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-01",
	})
	if !errors.Is(err, balloterrors.ErrPollNotActive) {
		t.Fatalf("expected poll-not-active, got %v", err)
	}
}

func TestCommitmentAndInclusionProof(t *testing.T) {
	module := ballotservice.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(activeSinglePoll(false))

	voters := []string{"voter-1", "voter-2", "voter-3"}
	responses := make([]httptransport.BallotResponse, 0, len(voters))
	for i, voter := range voters {
		resp, err := module.Handler.CastBallotHandler(context.Background(), voter, "idem-commit-"+voter, httptransport.CastBallotRequest{
			PollID: "poll-1",
			Option: []string{"opt-01", "opt-02", "opt-01"}[i],
		})
		if err != nil {
			t.Fatalf("cast for %s failed: %v", voter, err)
		}
		responses = append(responses, resp)
	}

	commitment, err := module.Handler.CommitmentHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("commitment failed: %v", err)
	}
	if commitment.LeafCount != 3 || commitment.Root == "" {
		t.Fatalf("unexpected commitment %+v", commitment)
	}

	for _, ballot := range responses {
		proof, err := module.Handler.ProofHandler(context.Background(), "poll-1", ballot.BallotID)
		if err != nil {
			t.Fatalf("proof for %s failed: %v", ballot.BallotID, err)
		}
		if proof.Root != commitment.Root {
			t.Fatalf("proof root %s does not match commitment %s", proof.Root, commitment.Root)
		}
		steps := make([]merkle.ProofStep, 0, len(proof.Steps))
		for _, step := range proof.Steps {
			steps = append(steps, merkle.ProofStep{Hash: step.Hash, Left: step.Left})
		}
		if !merkle.VerifyProof(proof.Leaf, steps, proof.Root) {
			t.Fatalf("inclusion proof for %s did not verify", ballot.BallotID)
		}
	}

	if _, err := module.Handler.ProofHandler(context.Background(), "poll-1", "missing-ballot"); !errors.Is(err, balloterrors.ErrBallotNotFound) {
		t.Fatalf("expected ballot-not-found, got %v", err)
	}
}

func TestCommitmentChangesWithNewBallot(t *testing.T) {
	module := ballotservice.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(activeSinglePoll(false))

	if _, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-root-1", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-01",
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	before, err := module.Handler.CommitmentHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("commitment failed: %v", err)
	}

	if _, err := module.Handler.CastBallotHandler(context.Background(), "voter-2", "idem-root-2", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-02",
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	after, err := module.Handler.CommitmentHandler(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("commitment failed: %v", err)
	}
	if before.Root == after.Root || after.LeafCount != 2 {
		t.Fatalf("root should change as the log grows: before=%s after=%+v", before.Root, after)
	}
}
