package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "choices/contexts/polling-core/poll-service/application"
	"choices/contexts/polling-core/poll-service/domain/entities"
	domainerrors "choices/contexts/polling-core/poll-service/domain/errors"
	"choices/contexts/polling-core/poll-service/ports"
)

// CreatePollCommand is the write-model input for poll creation.
type CreatePollCommand struct {
	CreatorID      string
	IdempotencyKey string
	Title          string
	Description    string
	OptionLabels   []string
	Method         entities.VotingMethod
	AllowRevote    bool
	CreditBudget   int
	MinScore       float64
	MaxScore       float64
	Privacy        entities.PrivacyLevel
	EpsilonBudget  float64
	KThreshold     int
}

type CreatePollResult struct {
	Poll     entities.Poll
	Replayed bool
}

// TransitionPollCommand drives the draft -> active -> closed state machine.
type TransitionPollCommand struct {
	PollID         string
	ActorID        string
	IdempotencyKey string
}

// PollUseCase orchestrates poll lifecycle commands. All writes are replay-safe
// via idempotency key + request hash validation.
type PollUseCase struct {
	Polls          ports.PollRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration

	DefaultEpsilonBudget float64
	DefaultKThreshold    int

	Logger *slog.Logger
}

func (uc PollUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (CreatePollResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("poll create processing started",
		"event", "poll_create_started",
		"module", "polling-core/poll-service",
		"layer", "application",
		"creator_id", strings.TrimSpace(cmd.CreatorID),
		"method", string(cmd.Method),
	)

	if err := validateCreatePoll(cmd); err != nil {
		logger.Warn("poll create validation failed",
			"event", "poll_create_validation_failed",
			"module", "polling-core/poll-service",
			"layer", "application",
			"creator_id", strings.TrimSpace(cmd.CreatorID),
			"error", err.Error(),
		)
		return CreatePollResult{}, err
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CreatePollResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashCreatePollCommand(cmd)
	if record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now); err != nil {
		return CreatePollResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return CreatePollResult{}, domainerrors.ErrIdempotencyConflict
		}
		poll, err := uc.Polls.GetPoll(ctx, record.PollID)
		if err != nil {
			return CreatePollResult{}, err
		}
		logger.Info("poll create replayed",
			"event", "poll_create_replayed",
			"module", "polling-core/poll-service",
			"layer", "application",
			"poll_id", poll.PollID,
		)
		return CreatePollResult{Poll: poll, Replayed: true}, nil
	}

	pollID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreatePollResult{}, err
	}

	epsilon := cmd.EpsilonBudget
	if epsilon <= 0 {
		epsilon = uc.DefaultEpsilonBudget
	}
	kThreshold := cmd.KThreshold
	if kThreshold <= 0 {
		kThreshold = uc.DefaultKThreshold
	}

	options := make([]entities.Option, 0, len(cmd.OptionLabels))
	for index, label := range cmd.OptionLabels {
		// Option ids are positional so tabulation tie-breaks and ranked
		// eliminations stay reproducible across recomputations.
		options = append(options, entities.Option{
			OptionID: fmt.Sprintf("opt-%02d", index+1),
			Label:    strings.TrimSpace(label),
			Position: index,
		})
	}

	poll := entities.Poll{
		PollID:      pollID,
		Title:       strings.TrimSpace(cmd.Title),
		Description: strings.TrimSpace(cmd.Description),
		Options:     options,
		Method:      cmd.Method,
		Config: entities.MethodConfig{
			AllowRevote:  cmd.AllowRevote,
			CreditBudget: cmd.CreditBudget,
			MinScore:     cmd.MinScore,
			MaxScore:     cmd.MaxScore,
		},
		Privacy:       cmd.Privacy,
		Status:        entities.StatusDraft,
		EpsilonBudget: epsilon,
		KThreshold:    kThreshold,
		CreatorID:     strings.TrimSpace(cmd.CreatorID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.Polls.SavePoll(ctx, poll); err != nil {
		return CreatePollResult{}, err
	}
	if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         cmd.IdempotencyKey,
		RequestHash: requestHash,
		PollID:      poll.PollID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	}); err != nil {
		return CreatePollResult{}, err
	}

	logger.Info("poll created",
		"event", "poll_created",
		"module", "polling-core/poll-service",
		"layer", "application",
		"poll_id", poll.PollID,
		"method", string(poll.Method),
		"privacy", string(poll.Privacy),
		"epsilon_budget", poll.EpsilonBudget,
		"k_threshold", poll.KThreshold,
	)
	return CreatePollResult{Poll: poll}, nil
}

// ActivatePoll opens a draft poll for voting.
func (uc PollUseCase) ActivatePoll(ctx context.Context, cmd TransitionPollCommand) (entities.Poll, error) {
	return uc.transition(ctx, cmd, entities.StatusDraft, entities.StatusActive, "poll_activated")
}

// ClosePoll ends voting on an active poll. Closing is terminal.
func (uc PollUseCase) ClosePoll(ctx context.Context, cmd TransitionPollCommand) (entities.Poll, error) {
	return uc.transition(ctx, cmd, entities.StatusActive, entities.StatusClosed, "poll_closed")
}

func (uc PollUseCase) transition(
	ctx context.Context,
	cmd TransitionPollCommand,
	from entities.PollStatus,
	to entities.PollStatus,
	event string,
) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.PollID) == "" {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return entities.Poll{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashTransitionCommand(cmd, string(to))
	if record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now); err != nil {
		return entities.Poll{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return entities.Poll{}, domainerrors.ErrIdempotencyConflict
		}
		return uc.Polls.GetPoll(ctx, record.PollID)
	}

	poll, err := uc.Polls.GetPoll(ctx, strings.TrimSpace(cmd.PollID))
	if err != nil {
		return entities.Poll{}, err
	}
	if poll.Status != from {
		return entities.Poll{}, domainerrors.ErrInvalidTransition
	}

	poll.Status = to
	poll.UpdatedAt = now
	switch to {
	case entities.StatusActive:
		activatedAt := now
		poll.ActivatedAt = &activatedAt
	case entities.StatusClosed:
		closedAt := now
		poll.ClosedAt = &closedAt
	}

	if err := uc.Polls.SavePoll(ctx, poll); err != nil {
		return entities.Poll{}, err
	}
	if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         strings.TrimSpace(cmd.IdempotencyKey),
		RequestHash: requestHash,
		PollID:      poll.PollID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	}); err != nil {
		return entities.Poll{}, err
	}

	logger.Info("poll status transitioned",
		"event", event,
		"module", "polling-core/poll-service",
		"layer", "application",
		"poll_id", poll.PollID,
		"status", string(poll.Status),
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	return poll, nil
}

func (uc PollUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc PollUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func validateCreatePoll(cmd CreatePollCommand) error {
	if strings.TrimSpace(cmd.CreatorID) == "" || strings.TrimSpace(cmd.Title) == "" {
		return domainerrors.ErrInvalidPollInput
	}
	if len(cmd.OptionLabels) < 2 {
		return domainerrors.ErrInvalidPollInput
	}
	for _, label := range cmd.OptionLabels {
		if strings.TrimSpace(label) == "" {
			return domainerrors.ErrInvalidPollInput
		}
	}
	if !cmd.Method.Valid() {
		return domainerrors.ErrInvalidPollInput
	}
	if cmd.Privacy != "" && !cmd.Privacy.Valid() {
		return domainerrors.ErrInvalidPollInput
	}
	switch cmd.Method {
	case entities.MethodQuadratic:
		if cmd.CreditBudget <= 0 {
			return domainerrors.ErrInvalidPollInput
		}
	case entities.MethodRange:
		if cmd.MaxScore <= cmd.MinScore {
			return domainerrors.ErrInvalidPollInput
		}
	}
	if cmd.EpsilonBudget < 0 {
		return domainerrors.ErrInvalidPollInput
	}
	return nil
}

func hashCreatePollCommand(cmd CreatePollCommand) string {
	payload := map[string]any{
		"creator_id":    strings.TrimSpace(cmd.CreatorID),
		"title":         strings.TrimSpace(cmd.Title),
		"options":       cmd.OptionLabels,
		"method":        string(cmd.Method),
		"allow_revote":  cmd.AllowRevote,
		"credit_budget": cmd.CreditBudget,
		"min_score":     cmd.MinScore,
		"max_score":     cmd.MaxScore,
		"privacy":       string(cmd.Privacy),
		"op":            "create_poll",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func hashTransitionCommand(cmd TransitionPollCommand, toStatus string) string {
	payload := map[string]string{
		"poll_id":  strings.TrimSpace(cmd.PollID),
		"actor_id": strings.TrimSpace(cmd.ActorID),
		"to":       toStatus,
		"op":       "transition_poll",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
