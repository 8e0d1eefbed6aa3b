package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"choices/contexts/privacy-analytics/privacy-service/application/commands"
	"choices/contexts/privacy-analytics/privacy-service/application/queries"
	"choices/contexts/privacy-analytics/privacy-service/domain/entities"
	httptransport "choices/contexts/privacy-analytics/privacy-service/transport/http"
)

type Handler struct {
	Discloses commands.DiscloseUseCase
	Budgets   queries.BudgetUseCase
	Logger    *slog.Logger
}

// DiscloseHandler godoc
// @Summary Release a privacy-filtered result view
// @Description Charges the poll's epsilon budget and returns noised tallies, with k-anonymous attribute buckets when an attribute is requested. Repeating a query key replays the prior charge.
// @Tags privacy-service
// @Accept json
// @Produce json
// @Param Query-Key header string true "Idempotent query key"
// @Param poll_id path string true "Poll id"
// @Param request body httptransport.DiscloseRequest true "Disclosure parameters"
// @Success 200 {object} httptransport.DisclosureResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 429 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id}/disclosures [post]
func (h Handler) DiscloseHandler(
	ctx context.Context,
	pollID string,
	queryKey string,
	req httptransport.DiscloseRequest,
) (httptransport.DisclosureResponse, error) {
	disclosure, err := h.Discloses.Disclose(ctx, commands.DiscloseCommand{
		PollID:    pollID,
		QueryKey:  queryKey,
		Context:   entities.DisclosureContext(req.Context),
		Epsilon:   req.Epsilon,
		Attribute: req.Attribute,
	})
	if err != nil {
		return httptransport.DisclosureResponse{}, err
	}

	tallies := make([]httptransport.NoisedTallyPayload, 0, len(disclosure.Tallies))
	for _, tally := range disclosure.Tallies {
		tallies = append(tallies, httptransport.NoisedTallyPayload{
			OptionID: tally.OptionID,
			Count:    tally.Count,
		})
	}
	buckets := make([]httptransport.BreakdownBucketPayload, 0, len(disclosure.Buckets))
	for _, bucket := range disclosure.Buckets {
		buckets = append(buckets, httptransport.BreakdownBucketPayload{
			Value: bucket.Value,
			Count: bucket.Count,
		})
	}
	return httptransport.DisclosureResponse{
		PollID:           disclosure.PollID,
		Context:          string(disclosure.Context),
		Epsilon:          disclosure.Epsilon,
		Tallies:          tallies,
		Attribute:        disclosure.Attribute,
		Buckets:          buckets,
		SuppressedBucket: disclosure.SuppressedBucket,
		KThreshold:       disclosure.KThreshold,
		Replayed:         disclosure.Replayed,
		RemainingEpsilon: disclosure.Remaining,
		DisclosedAt:      disclosure.DisclosedAt.UTC().Format(time.RFC3339),
	}, nil
}

// BudgetHandler godoc
// @Summary Get the privacy budget ledger
// @Description Returns allocated, consumed and remaining epsilon for a poll together with the charge history.
// @Tags privacy-service
// @Produce json
// @Param poll_id path string true "Poll id"
// @Success 200 {object} httptransport.BudgetResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id}/privacy-budget [get]
func (h Handler) BudgetHandler(ctx context.Context, pollID string) (httptransport.BudgetResponse, error) {
	status, err := h.Budgets.GetBudget(ctx, pollID)
	if err != nil {
		return httptransport.BudgetResponse{}, err
	}
	entries := make([]httptransport.LedgerEntryPayload, 0, len(status.Entries))
	for _, entry := range status.Entries {
		entries = append(entries, httptransport.LedgerEntryPayload{
			EntryID:     entry.EntryID,
			QueryKey:    entry.QueryKey,
			Context:     string(entry.Context),
			Epsilon:     entry.Epsilon,
			RequestedAt: entry.RequestedAt.UTC().Format(time.RFC3339),
		})
	}
	return httptransport.BudgetResponse{
		PollID:           status.Ledger.PollID,
		Allocated:        status.Ledger.Allocated,
		Consumed:         status.Ledger.Consumed,
		RemainingEpsilon: status.Ledger.Remaining(),
		Entries:          entries,
	}, nil
}
