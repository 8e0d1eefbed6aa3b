package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"choices/contexts/polling-core/ballot-service/application/commands"
	"choices/contexts/polling-core/ballot-service/application/queries"
	"choices/contexts/polling-core/ballot-service/domain/entities"
	httptransport "choices/contexts/polling-core/ballot-service/transport/http"
)

type Handler struct {
	Casts  commands.CastUseCase
	Audits queries.AuditUseCase
	Logger *slog.Logger
}

// CastBallotHandler godoc
// @Summary Cast a ballot
// @Description Validates and appends a ballot for an active poll. Revotes append a superseding ballot when the poll allows them.
// @Tags ballot-service
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param request body httptransport.CastBallotRequest true "Ballot payload"
// @Success 201 {object} httptransport.BallotResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /v1/ballots [post]
func (h Handler) CastBallotHandler(
	ctx context.Context,
	voterID string,
	idempotencyKey string,
	req httptransport.CastBallotRequest,
) (httptransport.BallotResponse, error) {
	result, err := h.Casts.CastBallot(ctx, commands.CastBallotCommand{
		VoterID:        voterID,
		IdempotencyKey: idempotencyKey,
		PollID:         req.PollID,
		Selection: entities.Selection{
			Option:  req.Option,
			Options: req.Options,
			Ranking: req.Ranking,
			Credits: req.Credits,
			Scores:  req.Scores,
		},
		Attributes: req.Attributes,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{
		BallotID:          result.Ballot.BallotID,
		PollID:            result.Ballot.PollID,
		Sequence:          result.Ballot.Sequence,
		MerkleLeaf:        result.Ballot.MerkleLeaf,
		VerificationToken: result.Ballot.VerificationToken,
		CastAt:            result.Ballot.CastAt.UTC().Format(time.RFC3339),
		Revote:            result.Revote,
		Replayed:          result.Replayed,
	}, nil
}

// CommitmentHandler godoc
// @Summary Get the poll commitment log
// @Description Returns the Merkle root and leaf count over the poll's append-only ballot log.
// @Tags ballot-service
// @Produce json
// @Param poll_id path string true "Poll id"
// @Success 200 {object} httptransport.CommitmentResponse
// @Router /v1/polls/{poll_id}/commitment [get]
func (h Handler) CommitmentHandler(ctx context.Context, pollID string) (httptransport.CommitmentResponse, error) {
	commitment, err := h.Audits.Commitment(ctx, pollID)
	if err != nil {
		return httptransport.CommitmentResponse{}, err
	}
	return httptransport.CommitmentResponse{
		PollID:     commitment.PollID,
		Root:       commitment.Root,
		LeafCount:  commitment.LeafCount,
		ComputedAt: commitment.ComputedAt.UTC().Format(time.RFC3339),
	}, nil
}

// ProofHandler godoc
// @Summary Get a ballot inclusion proof
// @Description Returns the sibling path proving a ballot is committed under the poll's Merkle root.
// @Tags ballot-service
// @Produce json
// @Param poll_id path string true "Poll id"
// @Param ballot_id path string true "Ballot id"
// @Success 200 {object} httptransport.ProofResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id}/ballots/{ballot_id}/proof [get]
func (h Handler) ProofHandler(ctx context.Context, pollID string, ballotID string) (httptransport.ProofResponse, error) {
	proof, err := h.Audits.Proof(ctx, pollID, ballotID)
	if err != nil {
		return httptransport.ProofResponse{}, err
	}
	steps := make([]httptransport.ProofStepPayload, 0, len(proof.Steps))
	for _, step := range proof.Steps {
		steps = append(steps, httptransport.ProofStepPayload{
			Hash: step.Hash,
			Left: step.Left,
		})
	}
	return httptransport.ProofResponse{
		PollID:    proof.PollID,
		BallotID:  proof.BallotID,
		Leaf:      proof.Leaf,
		Root:      proof.Root,
		LeafCount: proof.LeafCount,
		Steps:     steps,
	}, nil
}
