// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github-contributions/internal/crawler"
	custom_errors "github-contributions/internal/errors"
	"github-contributions/internal/github"
	"github-contributions/internal/metrics"
	"github-contributions/internal/stats"
	"github-contributions/internal/storage"
)

const defaultConcurrency = 2

// Syncer runs the crawler and the stats aggregator for users, on demand or on a schedule.
type Syncer struct {
	source          crawler.Source
	store           storage.Store
	logger          *slog.Logger
	metrics         *metrics.Metrics
	usersToSync     []string
	syncInterval    time.Duration
	concurrency     int
	checkpointEvery int

	inFlight sync.Map
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithMetrics records run, fetch and write counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

// WithCheckpointEvery sets the crawler's intermediate checkpoint interval.
func WithCheckpointEvery(n int) Option {
	return func(s *Syncer) { s.checkpointEvery = n }
}

// NewSyncer creates a new Syncer instance. Every scheduled login must be valid.
func NewSyncer(source crawler.Source, store storage.Store, logger *slog.Logger, users []string, interval time.Duration, concurrency int, opts ...Option) (*Syncer, error) {
	logins, err := parseLogins(users)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	s := &Syncer{
		source:          source,
		store:           store,
		logger:          logger,
		usersToSync:     logins,
		syncInterval:    interval,
		concurrency:     concurrency,
		checkpointEvery: crawler.DefaultCheckpointEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run crawls login and folds the result into its statistics. It reports whether anything
// was written to storage.
//
// Logins are case-insensitive. Only one run per login may be in flight; a second one gets
// ErrSyncInProgress.
func (s *Syncer) Run(ctx context.Context, login string) (bool, error) {
	if err := github.ValidateLogin(login); err != nil {
		return false, err
	}
	login = github.CanonicalLogin(login)
	if _, busy := s.inFlight.LoadOrStore(login, struct{}{}); busy {
		return false, custom_errors.ErrSyncInProgress
	}
	defer s.inFlight.Delete(login)

	logger := s.logger.With("run_id", uuid.NewString())
	logger.Info("Syncing user", "login", login)
	start := time.Now()

	c, err := crawler.Create(ctx, login, s.source, s.store, logger,
		crawler.WithCheckpointEvery(s.checkpointEvery),
		crawler.WithMetrics(s.metrics),
	)
	if err != nil {
		s.metrics.Run("error")
		return false, fmt.Errorf("crawl %s: %w", login, err)
	}

	agg, err := stats.Create(ctx, c, s.store, logger, stats.WithMetrics(s.metrics))
	if err != nil {
		s.metrics.Run("error")
		return c.HasChanged(), fmt.Errorf("aggregate %s: %w", login, err)
	}

	changed := c.HasChanged() || agg.HasChanged()
	if changed {
		s.metrics.Run("changed")
	} else {
		s.metrics.Run("unchanged")
	}
	logger.Info("User synced", "login", login, "changed", changed, "duration", time.Since(start).String())
	return changed, nil
}

// Start begins the continuous synchronization process.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.syncInterval.String(), "concurrency", s.concurrency, "users", len(s.usersToSync))
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	s.runSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runSyncCycle syncs every configured user, a few at a time.
func (s *Syncer) runSyncCycle(ctx context.Context) {
	s.logger.Info("Starting new sync cycle")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, login := range s.usersToSync {
		login := login
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, err := s.Run(gctx, login)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Failed to sync user", "login", login, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Sync cycle finished with an error", "error", err)
	} else {
		s.logger.Info("Sync cycle finished")
	}
}

func parseLogins(users []string) ([]string, error) {
	var logins []string
	for _, u := range users {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if err := github.ValidateLogin(u); err != nil {
			return nil, err
		}
		logins = append(logins, u)
	}
	return logins, nil
}
