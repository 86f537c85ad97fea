// internal/stats/types.go
package stats

import "github-contributions/internal/model"

// Counts accumulates the size of a set of commits.
type Counts struct {
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	ChangedFiles int `json:"changedFiles"`
	CommitCount  int `json:"commitCount"`
}

func (c *Counts) add(commit model.Commit) {
	c.Additions += commit.Additions
	c.Deletions += commit.Deletions
	c.ChangedFiles += commit.ChangedFiles
	c.CommitCount++
}

// Buckets maps a bucket label (a date, an hour, a language...) to its counts.
type Buckets map[string]*Counts

func (b Buckets) add(key string, commit model.Commit) {
	c, ok := b[key]
	if !ok {
		c = &Counts{}
		b[key] = c
	}
	c.add(commit)
}

// Split keeps the same statistic for private repositories, public repositories and both.
type Split[T any] struct {
	Private T `json:"private"`
	Public  T `json:"public"`
	Sum     T `json:"sum"`
}

// views returns the two members a commit contributes to.
func (s *Split[T]) views(private bool) []*T {
	if private {
		return []*T{&s.Private, &s.Sum}
	}
	return []*T{&s.Public, &s.Sum}
}

// Series is a timeline at every granularity the dashboard renders.
type Series struct {
	Quarters Buckets `json:"quarters"`
	Hours    Buckets `json:"hours"`
	Dates    Buckets `json:"dates"`
	Weeks    Buckets `json:"weeks"`
	Months   Buckets `json:"months"`
	Years    Buckets `json:"years"`
}

func newSeries() Series {
	return Series{
		Quarters: Buckets{},
		Hours:    Buckets{},
		Dates:    Buckets{},
		Weeks:    Buckets{},
		Months:   Buckets{},
		Years:    Buckets{},
	}
}

func (s *Series) add(f timeFields, commit model.Commit) {
	s.Quarters.add(f.Quarter, commit)
	s.Hours.add(f.Hour, commit)
	s.Dates.add(f.Date, commit)
	s.Weeks.add(f.Week, commit)
	s.Months.add(f.Month, commit)
	s.Years.add(f.Year, commit)
}

// WeekDay holds the counts of one weekday and its hours.
type WeekDay struct {
	Counts
	Hours Buckets `json:"hours"`
}

// WeekDays is keyed by weekday index, Sunday being "0".
type WeekDays map[string]*WeekDay

func (w WeekDays) add(f timeFields, commit model.Commit) {
	day, ok := w[f.WeekDay]
	if !ok {
		day = &WeekDay{Hours: Buckets{}}
		w[f.WeekDay] = day
	}
	day.Counts.add(commit)
	day.Hours.add(f.Hour, commit)
}

// RepositoryStats is the rollup of one repository under its display key.
type RepositoryStats struct {
	Counts
	Private   bool     `json:"private"`
	Languages []string `json:"languages"`
	Years     Buckets  `json:"years"`
}

// Snapshot is the published statistics document of a user.
type Snapshot struct {
	Total        Split[Counts]               `json:"total"`
	WeekDays     Split[WeekDays]             `json:"weekDays"`
	Timeline     Split[Series]               `json:"timeline"`
	Languages    Buckets                     `json:"languages"`
	Repositories map[string]*RepositoryStats `json:"repositories"`
}

// NewSnapshot returns an empty snapshot with every bucket allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		WeekDays:     Split[WeekDays]{Private: WeekDays{}, Public: WeekDays{}, Sum: WeekDays{}},
		Timeline:     Split[Series]{Private: newSeries(), Public: newSeries(), Sum: newSeries()},
		Languages:    Buckets{},
		Repositories: map[string]*RepositoryStats{},
	}
}

// Position is the aggregator's persisted bookkeeping. RepositoryMapping holds both directions
// of the anonymization; ProcessedCommits maps every folded commit to its display key.
type Position struct {
	Stats             *Snapshot         `json:"stats"`
	RepositoryMapping map[string]string `json:"repositoryMapping"`
	NextPrivateID     int               `json:"nextPrivateId"`
	ProcessedCommits  map[string]string `json:"processedCommits"`
}

// RepositorySummary is one entry of the published repository list.
type RepositorySummary struct {
	Key       string   `json:"key"`
	Private   bool     `json:"private"`
	Languages []string `json:"languages"`
	Counts
}
