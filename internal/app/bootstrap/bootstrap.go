package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	ballotservice "choices/contexts/polling-core/ballot-service"
	ballotpostgres "choices/contexts/polling-core/ballot-service/adapters/postgres"
	ballotports "choices/contexts/polling-core/ballot-service/ports"
	pollservice "choices/contexts/polling-core/poll-service"
	pollpostgres "choices/contexts/polling-core/poll-service/adapters/postgres"
	tabulationengine "choices/contexts/polling-core/tabulation-engine"
	tallymemory "choices/contexts/polling-core/tabulation-engine/adapters/memory"
	tallypostgres "choices/contexts/polling-core/tabulation-engine/adapters/postgres"
	tallyredis "choices/contexts/polling-core/tabulation-engine/adapters/redis"
	tallyqueries "choices/contexts/polling-core/tabulation-engine/application/queries"
	tallyports "choices/contexts/polling-core/tabulation-engine/ports"
	privacyservice "choices/contexts/privacy-analytics/privacy-service"
	privacypostgres "choices/contexts/privacy-analytics/privacy-service/adapters/postgres"
	"choices/contexts/privacy-analytics/privacy-service/domain/noise"
	privacyports "choices/contexts/privacy-analytics/privacy-service/ports"
	"choices/internal/platform/cache"
	"choices/internal/platform/config"
	"choices/internal/platform/db"
	"choices/internal/platform/httpserver"
	"choices/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	redis    *cache.Redis
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	redis        *cache.Redis
	ballots      ballotservice.Module
	tabulation   tabulationengine.Module
	runRelay     bool
	runConsumer  bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	redisConn, tallyCache, err := buildTallyCache(cfg, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	pollRepo := pollpostgres.NewRepository(pg.DB, logger)
	pollModule := pollservice.NewModule(pollservice.Dependencies{
		Polls:                pollRepo,
		Idempotency:          pollRepo,
		Clock:                pollpostgres.SystemClock{},
		IDGen:                pollpostgres.UUIDGenerator{},
		IdempotencyTTL:       24 * time.Hour,
		DefaultEpsilonBudget: cfg.DefaultEpsilonBudget,
		DefaultKThreshold:    cfg.DefaultKThreshold,
		Logger:               logger,
	})

	tallyRepo := tallypostgres.NewRepository(pg.DB, logger)
	tallyModule := tabulationengine.NewModule(tabulationengine.Dependencies{
		Ballots:  tallyRepo,
		Polls:    tallyRepo,
		Cache:    tallyCache,
		Dedup:    tallyRepo,
		Clock:    tallypostgres.SystemClock{},
		CacheTTL: 5 * time.Minute,
		Logger:   logger,
	})

	ballotRepo := ballotpostgres.NewRepository(pg.DB, logger)
	ballotModule := ballotservice.NewModule(ballotservice.Dependencies{
		Ballots:        ballotRepo,
		Polls:          ballotRepo,
		Idempotency:    ballotRepo,
		Outbox:         ballotRepo,
		OutboxRepo:     ballotRepo,
		Invalidator:    tallyInvalidator{results: tallyModule.Results},
		Clock:          ballotpostgres.SystemClock{},
		IDGen:          ballotpostgres.UUIDGenerator{},
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})

	privacyRepo := privacypostgres.NewRepository(pg.DB, logger)
	privacyModule := privacyservice.NewModule(privacyservice.Dependencies{
		Ledger:     privacyRepo,
		Polls:      privacyRepo,
		Results:    tallyResultReader{results: tallyModule.Results},
		Attributes: privacyRepo,
		Sampler:    noise.CryptoSampler{},
		Clock:      privacypostgres.SystemClock{},
		IDGen:      privacypostgres.UUIDGenerator{},
		Logger:     logger,
	})

	server := httpserver.New(
		pollModule,
		ballotModule,
		tallyModule,
		privacyModule,
		logger,
		normalizeAddr(cfg.HTTPPort),
	)
	return &APIApp{
		server:   server,
		postgres: pg,
		redis:    redisConn,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	redisConn, tallyCache, err := buildTallyCache(cfg, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	tallyRepo := tallypostgres.NewRepository(pg.DB, logger)
	tallyModule := tabulationengine.NewModule(tabulationengine.Dependencies{
		Ballots:    tallyRepo,
		Polls:      tallyRepo,
		Cache:      tallyCache,
		Dedup:      tallyRepo,
		Subscriber: kafka,
		Clock:      tallypostgres.SystemClock{},
		CacheTTL:   5 * time.Minute,
		Logger:     logger,
	})

	ballotRepo := ballotpostgres.NewRepository(pg.DB, logger)
	ballotModule := ballotservice.NewModule(ballotservice.Dependencies{
		Ballots:        ballotRepo,
		Polls:          ballotRepo,
		Idempotency:    ballotRepo,
		Outbox:         ballotRepo,
		OutboxRepo:     ballotRepo,
		Publisher:      kafka,
		Invalidator:    tallyInvalidator{results: tallyModule.Results},
		Clock:          ballotpostgres.SystemClock{},
		IDGen:          ballotpostgres.UUIDGenerator{},
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})

	return &WorkerApp{
		postgres:     pg,
		redis:        redisConn,
		ballots:      ballotModule,
		tabulation:   tallyModule,
		runRelay:     cfg.EnableOutboxRelay,
		runConsumer:  cfg.EnableBallotConsumer,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.runConsumer {
		if err := w.tabulation.Consumer.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"outbox_relay", w.runRelay,
		"ballot_consumer", w.runConsumer,
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.runRelay {
			if err := w.ballots.OutboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.redis != nil {
		_ = w.redis.Close()
	}
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// buildTallyCache picks redis when enabled, otherwise a process-local cache.
func buildTallyCache(cfg config.Config, logger *slog.Logger) (*cache.Redis, tallyports.ResultCache, error) {
	if !cfg.EnableRedisTallyCache {
		return nil, tallymemory.NewStore(nil), nil
	}
	redisConn, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return redisConn, tallyredis.NewCache(redisConn.Client, logger), nil
}

// tallyInvalidator lets ballot-service drop a stale cached result without
// importing the tabulation context directly.
type tallyInvalidator struct {
	results tallyqueries.ResultsUseCase
}

func (t tallyInvalidator) InvalidateTally(ctx context.Context, pollID string) error {
	return t.results.Invalidate(ctx, pollID)
}

// tallyResultReader feeds raw tabulation output into the privacy service.
type tallyResultReader struct {
	results tallyqueries.ResultsUseCase
}

func (t tallyResultReader) GetResult(ctx context.Context, pollID string) (privacyports.ResultProjection, error) {
	result, err := t.results.GetOrCompute(ctx, pollID)
	if err != nil {
		return privacyports.ResultProjection{}, err
	}
	tallies := make([]privacyports.ResultTally, 0, len(result.Tallies))
	for _, tally := range result.Tallies {
		tallies = append(tallies, privacyports.ResultTally{
			OptionID: tally.OptionID,
			Count:    tally.Count,
		})
	}
	return privacyports.ResultProjection{
		PollID:         result.PollID,
		Method:         result.Method,
		Tallies:        tallies,
		CountedBallots: result.CountedBallots,
	}, nil
}

var _ ballotports.TallyInvalidator = tallyInvalidator{}
var _ privacyports.ResultReader = tallyResultReader{}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
