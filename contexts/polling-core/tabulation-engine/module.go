package tabulationengine

import (
	"log/slog"
	"time"

	httpadapter "choices/contexts/polling-core/tabulation-engine/adapters/http"
	"choices/contexts/polling-core/tabulation-engine/adapters/memory"
	"choices/contexts/polling-core/tabulation-engine/application/queries"
	"choices/contexts/polling-core/tabulation-engine/application/workers"
	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	"choices/contexts/polling-core/tabulation-engine/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Results  queries.ResultsUseCase
	Consumer workers.BallotCastConsumer
	Store    *memory.Store
}

type Dependencies struct {
	Ballots    ports.BallotReader
	Polls      ports.PollReader
	Cache      ports.ResultCache
	Dedup      ports.EventDedupStore
	Subscriber ports.EventSubscriber
	Clock      ports.Clock
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	resultsUseCase := queries.ResultsUseCase{
		Ballots:  deps.Ballots,
		Polls:    deps.Polls,
		Cache:    deps.Cache,
		Clock:    deps.Clock,
		CacheTTL: deps.CacheTTL,
		Logger:   deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Results: resultsUseCase,
			Logger:  deps.Logger,
		},
		Results: resultsUseCase,
		Consumer: workers.BallotCastConsumer{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Results:    resultsUseCase,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Ballot, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Ballots:  store,
		Polls:    store,
		Cache:    store,
		Dedup:    store,
		Clock:    store,
		CacheTTL: 5 * time.Minute,
		Logger:   logger,
	})
	module.Store = store
	return module
}
