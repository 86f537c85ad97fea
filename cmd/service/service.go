// cmd/service/service.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github-contributions/internal/api"
	"github-contributions/internal/config"
	custom_errors "github-contributions/internal/errors"
	"github-contributions/internal/github"
	"github-contributions/internal/metrics"
	"github-contributions/internal/storage"
	"github-contributions/internal/syncer"
)

// service holds the wired application components.
type service struct {
	store  storage.Store
	syncer *syncer.Syncer
	router http.Handler
	close  func()
}

func (s *service) Close() { s.close() }

// newService wires storage, the GraphQL client and the syncer from cfg. Metrics are
// registered on reg when it is not nil.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (*service, error) {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		cached, err := storage.NewCachedStore(store, cfg.CacheSize)
		if err != nil {
			closeStore()
			return nil, fmt.Errorf("failed to create storage cache: %w", err)
		}
		store = cached
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	opts := []github.Option{github.WithRateLimit(cfg.GithubRateLimit)}
	if cfg.GithubAPIURL != "" {
		opts = append(opts, github.WithEnterpriseURL(cfg.GithubAPIURL))
	}
	ghClient, err := github.NewClient(cfg.GithubToken, logger, opts...)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	appSyncer, err := syncer.NewSyncer(github.NewFetcher(ghClient, m), store, logger, cfg.UsersToSync, cfg.SyncInterval, cfg.SyncConcurrency,
		syncer.WithMetrics(m),
		syncer.WithCheckpointEvery(cfg.CheckpointEvery),
	)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to create syncer: %w", err)
	}

	svc := &service{
		store:  store,
		syncer: appSyncer,
		close:  closeStore,
	}
	if reg != nil {
		svc.router = api.NewRouter(store, appSyncer, reg, logger)
	}
	return svc, nil
}

// openStore connects the configured storage backend and returns its cleanup function.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		dbpool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Database connection established")

		if err := storage.RunMigrations(cfg.MigrationsPath, cfg.DBURL); err != nil {
			dbpool.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info("Database migrations applied successfully")
		return storage.NewPostgresStore(dbpool), dbpool.Close, nil

	case config.DriverRedis:
		rs, err := storage.ConnectRedis(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Redis connection established")
		return rs, func() { _ = rs.Close() }, nil

	case config.DriverSQLite:
		ss, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		logger.Info("SQLite database opened", "path", cfg.SQLitePath)
		return ss, func() { _ = ss.Close() }, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory storage, crawl state is lost on exit")
		return storage.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, &custom_errors.ErrUnknownStorageDriver{Driver: cfg.StorageDriver}
}
