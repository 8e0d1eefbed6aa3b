package privacyservice

import (
	"log/slog"

	httpadapter "choices/contexts/privacy-analytics/privacy-service/adapters/http"
	"choices/contexts/privacy-analytics/privacy-service/adapters/memory"
	"choices/contexts/privacy-analytics/privacy-service/application/commands"
	"choices/contexts/privacy-analytics/privacy-service/application/queries"
	"choices/contexts/privacy-analytics/privacy-service/domain/noise"
	"choices/contexts/privacy-analytics/privacy-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Ledger     ports.LedgerStore
	Polls      ports.PollReader
	Results    ports.ResultReader
	Attributes ports.AttributeReader
	Sampler    noise.Sampler
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	discloseUseCase := commands.DiscloseUseCase{
		Ledger:     deps.Ledger,
		Polls:      deps.Polls,
		Results:    deps.Results,
		Attributes: deps.Attributes,
		Sampler:    deps.Sampler,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	budgetUseCase := queries.BudgetUseCase{
		Ledger: deps.Ledger,
		Polls:  deps.Polls,
	}
	return Module{
		Handler: httpadapter.Handler{
			Discloses: discloseUseCase,
			Budgets:   budgetUseCase,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Ledger:     store,
		Polls:      store,
		Results:    store,
		Attributes: store,
		Sampler:    noise.CryptoSampler{},
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
