package queries

import (
	"context"
	"strings"
	"time"

	"choices/contexts/polling-core/ballot-service/domain/entities"
	domainerrors "choices/contexts/polling-core/ballot-service/domain/errors"
	"choices/contexts/polling-core/ballot-service/domain/merkle"
	"choices/contexts/polling-core/ballot-service/ports"
)

type CommitmentLog struct {
	PollID     string
	Root       string
	LeafCount  int
	ComputedAt time.Time
}

type InclusionProof struct {
	PollID    string
	BallotID  string
	Leaf      string
	Root      string
	LeafCount int
	Steps     []merkle.ProofStep
}

// AuditUseCase exposes the ballot commitment log. The tree is rebuilt from the
// append-only ballot list on every call, so superseded revote ballots stay
// committed alongside the ones that count.
type AuditUseCase struct {
	Ballots ports.BallotRepository
	Clock   ports.Clock
}

func (uc AuditUseCase) Commitment(ctx context.Context, pollID string) (CommitmentLog, error) {
	ballots, err := uc.Ballots.ListBallotsByPoll(ctx, strings.TrimSpace(pollID))
	if err != nil {
		return CommitmentLog{}, err
	}
	tree := merkle.BuildTree(leaves(ballots))
	return CommitmentLog{
		PollID:     strings.TrimSpace(pollID),
		Root:       tree.Root(),
		LeafCount:  tree.LeafCount(),
		ComputedAt: uc.now(),
	}, nil
}

func (uc AuditUseCase) Proof(ctx context.Context, pollID string, ballotID string) (InclusionProof, error) {
	ballots, err := uc.Ballots.ListBallotsByPoll(ctx, strings.TrimSpace(pollID))
	if err != nil {
		return InclusionProof{}, err
	}
	index := -1
	for i, ballot := range ballots {
		if ballot.BallotID == strings.TrimSpace(ballotID) {
			index = i
			break
		}
	}
	if index < 0 {
		return InclusionProof{}, domainerrors.ErrBallotNotFound
	}
	tree := merkle.BuildTree(leaves(ballots))
	steps, err := tree.Proof(index)
	if err != nil {
		return InclusionProof{}, err
	}
	return InclusionProof{
		PollID:    strings.TrimSpace(pollID),
		BallotID:  ballots[index].BallotID,
		Leaf:      ballots[index].MerkleLeaf,
		Root:      tree.Root(),
		LeafCount: tree.LeafCount(),
		Steps:     steps,
	}, nil
}

func (uc AuditUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func leaves(ballots []entities.Ballot) []string {
	items := make([]string, 0, len(ballots))
	for _, ballot := range ballots {
		leaf := ballot.MerkleLeaf
		if leaf == "" {
			leaf = merkle.LeafHash(ballot)
		}
		items = append(items, leaf)
	}
	return items
}
