package queries

import (
	"context"
	"strings"

	"choices/contexts/polling-core/poll-service/domain/entities"
	"choices/contexts/polling-core/poll-service/ports"
)

type PollQueryUseCase struct {
	Polls ports.PollRepository
}

func (uc PollQueryUseCase) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	return uc.Polls.GetPoll(ctx, strings.TrimSpace(pollID))
}

func (uc PollQueryUseCase) ListPolls(ctx context.Context, status string) ([]entities.Poll, error) {
	return uc.Polls.ListPolls(ctx, entities.PollStatus(strings.TrimSpace(status)))
}
