package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"choices/contexts/polling-core/poll-service/application/commands"
	"choices/contexts/polling-core/poll-service/application/queries"
	"choices/contexts/polling-core/poll-service/domain/entities"
	httptransport "choices/contexts/polling-core/poll-service/transport/http"
)

type Handler struct {
	Polls   commands.PollUseCase
	Queries queries.PollQueryUseCase
	Logger  *slog.Logger
}

// CreatePollHandler godoc
// @Summary Create a poll
// @Description Creates a draft poll with a voting method, option list, and privacy settings.
// @Tags poll-service
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param request body httptransport.CreatePollRequest true "Poll definition"
// @Success 201 {object} httptransport.PollResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/polls [post]
func (h Handler) CreatePollHandler(
	ctx context.Context,
	creatorID string,
	idempotencyKey string,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	result, err := h.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		CreatorID:      creatorID,
		IdempotencyKey: idempotencyKey,
		Title:          req.Title,
		Description:    req.Description,
		OptionLabels:   req.Options,
		Method:         entities.VotingMethod(req.Method),
		AllowRevote:    req.Config.AllowRevote,
		CreditBudget:   req.Config.CreditBudget,
		MinScore:       req.Config.MinScore,
		MaxScore:       req.Config.MaxScore,
		Privacy:        entities.PrivacyLevel(req.Privacy),
		EpsilonBudget:  req.EpsilonBudget,
		KThreshold:     req.KThreshold,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	response := pollResponseFromEntity(result.Poll)
	response.Replayed = result.Replayed
	return response, nil
}

// ActivatePollHandler godoc
// @Summary Activate a poll
// @Description Transitions a draft poll to active so ballots can be cast.
// @Tags poll-service
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param poll_id path string true "Poll id"
// @Success 200 {object} httptransport.PollResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id}/activate [post]
func (h Handler) ActivatePollHandler(
	ctx context.Context,
	pollID string,
	actorID string,
	idempotencyKey string,
) (httptransport.PollResponse, error) {
	poll, err := h.Polls.ActivatePoll(ctx, commands.TransitionPollCommand{
		PollID:         pollID,
		ActorID:        actorID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return pollResponseFromEntity(poll), nil
}

// ClosePollHandler godoc
// @Summary Close a poll
// @Description Transitions an active poll to closed. Closing is terminal.
// @Tags poll-service
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param poll_id path string true "Poll id"
// @Success 200 {object} httptransport.PollResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id}/close [post]
func (h Handler) ClosePollHandler(
	ctx context.Context,
	pollID string,
	actorID string,
	idempotencyKey string,
) (httptransport.PollResponse, error) {
	poll, err := h.Polls.ClosePoll(ctx, commands.TransitionPollCommand{
		PollID:         pollID,
		ActorID:        actorID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return pollResponseFromEntity(poll), nil
}

// GetPollHandler godoc
// @Summary Get poll details
// @Description Returns one poll by id.
// @Tags poll-service
// @Produce json
// @Param poll_id path string true "Poll id"
// @Success 200 {object} httptransport.PollResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id} [get]
func (h Handler) GetPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	poll, err := h.Queries.GetPoll(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return pollResponseFromEntity(poll), nil
}

// ListPollsHandler godoc
// @Summary List polls
// @Description Returns polls, optionally filtered by status.
// @Tags poll-service
// @Produce json
// @Param status query string false "Poll status: draft,active,closed"
// @Success 200 {object} httptransport.PollListResponse
// @Router /v1/polls [get]
func (h Handler) ListPollsHandler(ctx context.Context, status string) (httptransport.PollListResponse, error) {
	polls, err := h.Queries.ListPolls(ctx, status)
	if err != nil {
		return httptransport.PollListResponse{}, err
	}
	items := make([]httptransport.PollResponse, 0, len(polls))
	for _, poll := range polls {
		items = append(items, pollResponseFromEntity(poll))
	}
	return httptransport.PollListResponse{Items: items}, nil
}

func pollResponseFromEntity(poll entities.Poll) httptransport.PollResponse {
	options := make([]httptransport.OptionPayload, 0, len(poll.Options))
	for _, option := range poll.Options {
		options = append(options, httptransport.OptionPayload{
			OptionID: option.OptionID,
			Label:    option.Label,
			Position: option.Position,
		})
	}
	response := httptransport.PollResponse{
		PollID:      poll.PollID,
		Title:       poll.Title,
		Description: poll.Description,
		Options:     options,
		Method:      string(poll.Method),
		Config: httptransport.MethodConfigPayload{
			AllowRevote:  poll.Config.AllowRevote,
			CreditBudget: poll.Config.CreditBudget,
			MinScore:     poll.Config.MinScore,
			MaxScore:     poll.Config.MaxScore,
		},
		Privacy:       string(poll.Privacy),
		Status:        string(poll.Status),
		EpsilonBudget: poll.EpsilonBudget,
		KThreshold:    poll.KThreshold,
		CreatorID:     poll.CreatorID,
		CreatedAt:     poll.CreatedAt.UTC().Format(time.RFC3339),
	}
	if poll.ActivatedAt != nil {
		response.ActivatedAt = poll.ActivatedAt.UTC().Format(time.RFC3339)
	}
	if poll.ClosedAt != nil {
		response.ClosedAt = poll.ClosedAt.UTC().Format(time.RFC3339)
	}
	return response
}
