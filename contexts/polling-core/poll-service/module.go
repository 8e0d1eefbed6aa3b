package pollservice

import (
	"log/slog"
	"time"

	httpadapter "choices/contexts/polling-core/poll-service/adapters/http"
	"choices/contexts/polling-core/poll-service/adapters/memory"
	"choices/contexts/polling-core/poll-service/application/commands"
	"choices/contexts/polling-core/poll-service/application/queries"
	"choices/contexts/polling-core/poll-service/domain/entities"
	"choices/contexts/polling-core/poll-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Polls                ports.PollRepository
	Idempotency          ports.IdempotencyStore
	Clock                ports.Clock
	IDGen                ports.IDGenerator
	IdempotencyTTL       time.Duration
	DefaultEpsilonBudget float64
	DefaultKThreshold    int
	Logger               *slog.Logger
}

func NewModule(deps Dependencies) Module {
	pollUseCase := commands.PollUseCase{
		Polls:                deps.Polls,
		Idempotency:          deps.Idempotency,
		Clock:                deps.Clock,
		IDGen:                deps.IDGen,
		IdempotencyTTL:       deps.IdempotencyTTL,
		DefaultEpsilonBudget: deps.DefaultEpsilonBudget,
		DefaultKThreshold:    deps.DefaultKThreshold,
		Logger:               deps.Logger,
	}
	queryUseCase := queries.PollQueryUseCase{
		Polls: deps.Polls,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls:   pollUseCase,
			Queries: queryUseCase,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Poll, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Polls:                store,
		Idempotency:          store,
		Clock:                store,
		IDGen:                store,
		IdempotencyTTL:       24 * time.Hour,
		DefaultEpsilonBudget: 1.0,
		DefaultKThreshold:    5,
		Logger:               logger,
	})
	module.Store = store
	return module
}
