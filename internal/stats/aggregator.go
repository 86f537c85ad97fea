// internal/stats/aggregator.go
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github-contributions/internal/metrics"
	"github-contributions/internal/model"
	"github-contributions/internal/storage"
)

const writeKind = "stats"

// Crawl is the crawl output the aggregator consumes. *crawler.Crawler implements it.
type Crawl interface {
	UserID() string
	Login() string
	Repositories() []*model.Repository
}

// Aggregator folds a user's own commits into bucketed statistics exactly once per commit.
type Aggregator struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	userID string
	login  string

	position Position

	lastData   string
	hasChanged bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMetrics records write counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New creates an empty aggregator for the user. Call Restore to load earlier bookkeeping.
func New(store storage.Store, logger *slog.Logger, userID, login string, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		logger: logger.With("user", login),
		userID: userID,
		login:  login,
		position: Position{
			Stats:             NewSnapshot(),
			RepositoryMapping: map[string]string{},
			NextPrivateID:     1,
			ProcessedCommits:  map[string]string{},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Create restores the aggregator of the crawled user, folds in new commits and saves.
func Create(ctx context.Context, crawl Crawl, store storage.Store, logger *slog.Logger, opts ...Option) (*Aggregator, error) {
	a := New(store, logger, crawl.UserID(), crawl.Login(), opts...)
	if err := a.Restore(ctx); err != nil {
		return nil, err
	}
	a.Aggregate(crawl.Repositories())
	if _, err := a.Save(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// HasChanged reports whether the last Save wrote anything.
func (a *Aggregator) HasChanged() bool { return a.hasChanged }

// Snapshot returns the statistics aggregated so far.
func (a *Aggregator) Snapshot() *Snapshot { return a.position.Stats }

// DisplayKey returns the published key of a repository, or "" if it was never aggregated.
func (a *Aggregator) DisplayKey(repoKey string) string {
	return a.position.RepositoryMapping[repoKey]
}

// Aggregate folds every own commit of repos that has not been processed before.
func (a *Aggregator) Aggregate(repos []*model.Repository) *Snapshot {
	s := a.position.Stats
	added := 0
	for _, repo := range repos {
		key := a.displayKey(repo)
		rs := a.repositoryStats(key)
		rs.Private = repo.IsPrivate
		rs.Languages = slices.Clone(repo.Languages)
		if rs.Languages == nil {
			rs.Languages = []string{}
		}

		for _, oid := range repo.OwnCommits {
			if _, done := a.position.ProcessedCommits[oid]; done {
				continue
			}
			commit, ok := repo.Commits[oid]
			if !ok {
				a.logger.Warn("Own commit missing from repository commits", "repo", repo.Key, "oid", oid)
				continue
			}
			f := fieldsOf(commit.CommittedDate)

			for _, total := range s.Total.views(repo.IsPrivate) {
				total.add(commit)
			}
			for _, days := range s.WeekDays.views(repo.IsPrivate) {
				days.add(f, commit)
			}
			for _, series := range s.Timeline.views(repo.IsPrivate) {
				series.add(f, commit)
			}
			rs.add(commit)
			rs.Years.add(f.Year, commit)
			for _, lang := range repo.Languages {
				s.Languages.add(lang, commit)
			}

			a.position.ProcessedCommits[oid] = key
			added++
		}
	}
	a.logger.Info("Aggregated commits", "new", added, "total", len(a.position.ProcessedCommits))
	return s
}

// displayKey returns the stable published key of repo, allocating an anonymized one the first
// time a private repository is seen. A published repository made private is anonymized from
// then on; an anonymized one made public keeps its key.
func (a *Aggregator) displayKey(repo *model.Repository) string {
	if key, ok := a.position.RepositoryMapping[repo.Key]; ok && (key != repo.Key || !repo.IsPrivate) {
		return key
	}
	key := repo.Key
	if repo.IsPrivate {
		key = fmt.Sprintf("%s/private#%d", repo.Owner, a.position.NextPrivateID)
		a.position.NextPrivateID++
		a.position.RepositoryMapping[key] = repo.Key
	}
	a.position.RepositoryMapping[repo.Key] = key
	return key
}

func (a *Aggregator) repositoryStats(key string) *RepositoryStats {
	rs, ok := a.position.Stats.Repositories[key]
	if !ok {
		rs = &RepositoryStats{Languages: []string{}, Years: Buckets{}}
		a.position.Stats.Repositories[key] = rs
	}
	if rs.Years == nil {
		rs.Years = Buckets{}
	}
	return rs
}

// Summary lists every aggregated repository by display key.
func (a *Aggregator) Summary() []RepositorySummary {
	out := make([]RepositorySummary, 0, len(a.position.Stats.Repositories))
	for key, rs := range a.position.Stats.Repositories {
		out = append(out, RepositorySummary{
			Key:       key,
			Private:   rs.Private,
			Languages: rs.Languages,
			Counts:    rs.Counts,
		})
	}
	slices.SortFunc(out, func(x, y RepositorySummary) int { return strings.Compare(x.Key, y.Key) })
	return out
}

// Save publishes the snapshot and the repository summary, then commits the bookkeeping.
//
// Nothing is written when the bookkeeping equals the last successful save. The bookkeeping goes
// last so a failure part way leaves the previous position in place and the next save rewrites
// all three items.
func (a *Aggregator) Save(ctx context.Context) (bool, error) {
	positionData, err := json.Marshal(a.position)
	if err != nil {
		return false, fmt.Errorf("encode stats position: %w", err)
	}
	if string(positionData) == a.lastData {
		a.logger.Debug("Stats unchanged, skipping write")
		a.metrics.WriteSkipped(writeKind)
		return false, nil
	}

	snapshotData, err := json.Marshal(a.position.Stats)
	if err != nil {
		return false, fmt.Errorf("encode stats: %w", err)
	}
	summaryData, err := json.Marshal(a.Summary())
	if err != nil {
		return false, fmt.Errorf("encode repository summary: %w", err)
	}

	items := []struct{ id, data string }{
		{storage.StatsID(a.login), string(snapshotData)},
		{storage.RepositoriesID(a.login), string(summaryData)},
		{storage.StatsPositionID(a.userID), string(positionData)},
	}
	for _, item := range items {
		if err := a.store.WriteItem(ctx, item.id, item.data); err != nil {
			return false, fmt.Errorf("write %s: %w", item.id, err)
		}
		a.metrics.Write(writeKind)
	}

	a.lastData = string(positionData)
	a.hasChanged = true
	a.logger.Debug("Saved stats", "commits", len(a.position.ProcessedCommits))
	return true, nil
}

// Restore loads the bookkeeping of the last save. Without one the aggregator starts empty.
func (a *Aggregator) Restore(ctx context.Context) error {
	data, ok, err := a.store.ReadItem(ctx, storage.StatsPositionID(a.userID))
	if err != nil {
		return fmt.Errorf("read stats position: %w", err)
	}
	if !ok {
		return nil
	}

	var position Position
	if err := json.Unmarshal([]byte(data), &position); err != nil {
		return fmt.Errorf("decode stats position: %w", err)
	}
	if position.Stats == nil {
		position.Stats = NewSnapshot()
	}
	if position.RepositoryMapping == nil {
		position.RepositoryMapping = map[string]string{}
	}
	if position.ProcessedCommits == nil {
		position.ProcessedCommits = map[string]string{}
	}
	if position.NextPrivateID < 1 {
		position.NextPrivateID = 1
	}
	fillBuckets(position.Stats)

	a.position = position
	a.lastData = data
	a.logger.Info("Restored stats", "commits", len(position.ProcessedCommits), "repositories", len(position.Stats.Repositories))
	return nil
}

// fillBuckets allocates buckets a restored document left null.
func fillBuckets(s *Snapshot) {
	for _, days := range []*WeekDays{&s.WeekDays.Private, &s.WeekDays.Public, &s.WeekDays.Sum} {
		if *days == nil {
			*days = WeekDays{}
		}
		for _, day := range *days {
			if day.Hours == nil {
				day.Hours = Buckets{}
			}
		}
	}
	for _, series := range []*Series{&s.Timeline.Private, &s.Timeline.Public, &s.Timeline.Sum} {
		for _, b := range []*Buckets{&series.Quarters, &series.Hours, &series.Dates, &series.Weeks, &series.Months, &series.Years} {
			if *b == nil {
				*b = Buckets{}
			}
		}
	}
	if s.Languages == nil {
		s.Languages = Buckets{}
	}
	if s.Repositories == nil {
		s.Repositories = map[string]*RepositoryStats{}
	}
}
