package ballotservice

import (
	"log/slog"
	"time"

	httpadapter "choices/contexts/polling-core/ballot-service/adapters/http"
	"choices/contexts/polling-core/ballot-service/adapters/memory"
	"choices/contexts/polling-core/ballot-service/application/commands"
	"choices/contexts/polling-core/ballot-service/application/queries"
	"choices/contexts/polling-core/ballot-service/application/workers"
	"choices/contexts/polling-core/ballot-service/domain/entities"
	"choices/contexts/polling-core/ballot-service/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	Store       *memory.Store
}

type Dependencies struct {
	Ballots        ports.BallotRepository
	Polls          ports.PollReader
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	OutboxRepo     ports.OutboxRepository
	Publisher      ports.EventPublisher
	Invalidator    ports.TallyInvalidator
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	castUseCase := commands.CastUseCase{
		Ballots:        deps.Ballots,
		Polls:          deps.Polls,
		Idempotency:    deps.Idempotency,
		Outbox:         deps.Outbox,
		Invalidator:    deps.Invalidator,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	auditUseCase := queries.AuditUseCase{
		Ballots: deps.Ballots,
		Clock:   deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Casts:  castUseCase,
			Audits: auditUseCase,
			Logger: deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.OutboxRepo,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Ballot, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Ballots:        store,
		Polls:          store,
		Idempotency:    store,
		Outbox:         store,
		OutboxRepo:     store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
