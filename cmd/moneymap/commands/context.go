package commands

import (
	"context"
	"fmt"

	"github.com/moneymap/moneymap/internal/fred"
	"github.com/moneymap/moneymap/internal/ingest"
	"github.com/moneymap/moneymap/internal/pipeline"
	"github.com/moneymap/moneymap/internal/store"
	"github.com/moneymap/moneymap/internal/storyconfig"
	"github.com/moneymap/moneymap/pkg/config"
	"github.com/moneymap/moneymap/pkg/database"
	"github.com/moneymap/moneymap/pkg/logger"
	"github.com/moneymap/moneymap/pkg/redis"
)

// app bundles everything a command needs. Built once per invocation;
// Close releases connections.
type app struct {
	cfg       *config.Config
	strategy  *storyconfig.Config
	log       *logger.Logger
	db        *database.DB
	rdb       *redis.Client
	repo      *store.Repository
	collector *ingest.Collector
	runner    *pipeline.Runner
}

// newApp loads config, connects infrastructure, and wires the pipeline.
// Any config problem aborts here, before a single fetch.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	path := cfg.StrategyFile
	if strategyFile != "" {
		path = strategyFile
	}
	strategy, err := storyconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", path, err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	fredClient := fred.NewClient(cfg, log)
	cache := redis.NewCache(rdb, "moneymap")
	collector := ingest.NewCollector(fredClient, cache, ingest.Config{
		Workers:  4,
		CacheTTL: cfg.Redis.SeriesTTL,
	}, log)

	runner, err := pipeline.NewRunner(strategy, collector, repo, log)
	if err != nil {
		db.Close()
		_ = rdb.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		strategy:  strategy,
		log:       log,
		db:        db,
		rdb:       rdb,
		repo:      repo,
		collector: collector,
		runner:    runner,
	}, nil
}

// Close releases all connections.
func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
