// internal/crawler/crawler.go
package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"github-contributions/internal/github"
	"github-contributions/internal/metrics"
	"github-contributions/internal/model"
	"github-contributions/internal/storage"
)

// DefaultCheckpointEvery is how many commits a branch fetch may accumulate between
// intermediate checkpoints.
const DefaultCheckpointEvery = 1000

// Source is the GraphQL data the crawler consumes. github.Fetcher implements it.
type Source interface {
	UserID(ctx context.Context, login string) (string, error)
	Repositories(ctx context.Context, login string) ([]*model.Repository, error)
	Branches(ctx context.Context, repo *model.Repository, userID string) ([]*model.Branch, error)
	History(ctx context.Context, repo *model.Repository, branch, userID string, cursor model.Cursor) (github.HistoryPage, error)
}

// Crawler incrementally collects the commits a user authored across all of their
// repositories and branches, checkpointing to storage so any invocation can resume
// where the previous one stopped.
type Crawler struct {
	source          Source
	store           storage.Store
	logger          *slog.Logger
	metrics         *metrics.Metrics
	checkpointEvery int

	userID    string
	userLogin string

	crawlType    model.CrawlType
	repositories []*model.Repository
	position     *model.CrawlPosition

	lastData   string
	hasChanged bool
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithCheckpointEvery sets the intermediate checkpoint interval in commits.
func WithCheckpointEvery(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.checkpointEvery = n
		}
	}
}

// WithMetrics records fetch and write counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

// New creates a crawler for an already resolved user. Most callers want Create.
func New(userID, userLogin string, source Source, store storage.Store, logger *slog.Logger, opts ...Option) *Crawler {
	c := &Crawler{
		source:          source,
		store:           store,
		logger:          logger.With("user", userLogin),
		checkpointEvery: DefaultCheckpointEvery,
		userID:          userID,
		userLogin:       userLogin,
		repositories:    []*model.Repository{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create resolves login, restores the last checkpoint and runs one crawl pass.
func Create(ctx context.Context, login string, source Source, store storage.Store, logger *slog.Logger, opts ...Option) (*Crawler, error) {
	id, err := source.UserID(ctx, login)
	if err != nil {
		return nil, err
	}
	c := New(id, login, source, store, logger, opts...)
	if err := c.Restore(ctx); err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// UserID returns the GraphQL node id of the crawled user.
func (c *Crawler) UserID() string { return c.userID }

// Login returns the login the crawl was started for.
func (c *Crawler) Login() string { return c.userLogin }

// CrawlType returns the current phase, init or delta.
func (c *Crawler) CrawlType() model.CrawlType { return c.crawlType }

// Repositories returns the crawled repositories in discovery order.
func (c *Crawler) Repositories() []*model.Repository { return c.repositories }

// HasChanged reports whether this crawler wrote anything to storage.
func (c *Crawler) HasChanged() bool { return c.hasChanged }

// Init runs one crawl pass.
//
// Unless an initial crawl is still in progress, repository and branch metadata is refreshed
// first and reconciled with the cached data. Commit pagination then resumes from the restored
// position. Only a pass that finishes every branch moves the crawl to the delta phase; an
// error leaves the last checkpoint as the resume point.
func (c *Crawler) Init(ctx context.Context) error {
	c.logger.Info("Starting crawl", "crawl_type", crawlTypeLabel(c.crawlType))

	if c.crawlType != model.CrawlTypeInit {
		if err := c.initRepositories(ctx); err != nil {
			return err
		}
		if err := c.initBranches(ctx); err != nil {
			return err
		}
	}
	if c.crawlType == "" {
		c.crawlType = model.CrawlTypeInit
	}

	if err := c.initCommits(ctx); err != nil {
		return err
	}
	if c.position != nil {
		c.logger.Warn("Crawl pass ended with an unfinished position", "repo", c.position.RepoKey, "branch", c.position.BranchName)
		return nil
	}

	c.crawlType = model.CrawlTypeDelta
	_, err := c.Save(ctx, nil)
	return err
}

func (c *Crawler) initRepositories(ctx context.Context) error {
	fresh, err := c.source.Repositories(ctx, c.userLogin)
	if err != nil {
		return fmt.Errorf("discover repositories: %w", err)
	}
	c.repositories = MergeRepositories(c.repositories, fresh)
	c.logger.Info("Discovered repositories", "count", len(c.repositories))
	return nil
}

func (c *Crawler) initBranches(ctx context.Context) error {
	for _, repo := range c.repositories {
		c.logger.Debug("Listing branches", "repo", repo.Key)
		fresh, err := c.source.Branches(ctx, repo, c.userID)
		if err != nil {
			return fmt.Errorf("discover branches: %w", err)
		}
		repo.Branches = MergeBranches(repo.Branches, fresh)
	}
	return nil
}

func crawlTypeLabel(t model.CrawlType) string {
	if t == "" {
		return "first"
	}
	return string(t)
}
