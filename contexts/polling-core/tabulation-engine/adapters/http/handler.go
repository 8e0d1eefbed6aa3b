package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"choices/contexts/polling-core/tabulation-engine/application/queries"
	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	httptransport "choices/contexts/polling-core/tabulation-engine/transport/http"
)

type Handler struct {
	Results queries.ResultsUseCase
	Logger  *slog.Logger
}

// GetTallyHandler godoc
// @Summary Get raw tabulation results
// @Description Returns the cached or freshly computed tabulation result for a poll. This is the raw result; privacy-filtered disclosures go through the privacy service.
// @Tags tabulation-engine
// @Produce json
// @Param poll_id path string true "Poll id"
// @Success 200 {object} httptransport.TallyResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id}/tally [get]
func (h Handler) GetTallyHandler(ctx context.Context, pollID string) (httptransport.TallyResponse, error) {
	result, err := h.Results.GetOrCompute(ctx, pollID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return tallyResponseFromEntity(result), nil
}

func tallyResponseFromEntity(result entities.TabulationResult) httptransport.TallyResponse {
	tallies := make([]httptransport.OptionTallyPayload, 0, len(result.Tallies))
	for _, tally := range result.Tallies {
		tallies = append(tallies, httptransport.OptionTallyPayload{
			OptionID: tally.OptionID,
			Count:    tally.Count,
		})
	}
	rounds := make([]httptransport.EliminationRoundPayload, 0, len(result.Rounds))
	for _, round := range result.Rounds {
		counts := make([]httptransport.RoundCountPayload, 0, len(round.Counts))
		for _, count := range round.Counts {
			counts = append(counts, httptransport.RoundCountPayload{
				OptionID: count.OptionID,
				Count:    count.Count,
			})
		}
		rounds = append(rounds, httptransport.EliminationRoundPayload{
			Round:      round.Round,
			Counts:     counts,
			Eliminated: round.Eliminated,
			Exhausted:  round.Exhausted,
		})
	}
	return httptransport.TallyResponse{
		PollID:           result.PollID,
		Method:           result.Method,
		Tallies:          tallies,
		Rounds:           rounds,
		Winners:          result.Winners,
		Tie:              result.Tie,
		TotalBallots:     result.TotalBallots,
		CountedBallots:   result.CountedBallots,
		ExhaustedBallots: result.ExhaustedBallots,
		ResultHash:       result.ResultHash,
		ComputedAt:       result.ComputedAt.UTC().Format(time.RFC3339),
	}
}
