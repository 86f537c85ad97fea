// internal/model/models.go
package model

import (
	"slices"
	"time"
)

// CrawlType is the lifecycle phase of a user's crawl.
type CrawlType string

const (
	// CrawlTypeInit walks the full commit history of every branch.
	CrawlTypeInit CrawlType = "init"
	// CrawlTypeDelta only refreshes metadata and fetches commits newer than the last known head.
	CrawlTypeDelta CrawlType = "delta"
)

// Repository is a GitHub repository the tracked user owns, collaborates on or can see
// through an organization, together with everything fetched from it so far.
type Repository struct {
	Owner             string            `json:"owner"`
	Name              string            `json:"name"`
	Key               string            `json:"key"`
	IsPrivate         bool              `json:"isPrivate"`
	DefaultBranchName string            `json:"defaultBranchName,omitempty"`
	Languages         []string          `json:"languages"`
	Branches          []*Branch         `json:"branches"`
	Commits           map[string]Commit `json:"commits"`
	OwnCommits        []string          `json:"ownCommits"`
}

// NewRepository returns an empty repository keyed by owner/name.
func NewRepository(owner, name string) *Repository {
	return &Repository{
		Owner:      owner,
		Name:       name,
		Key:        RepositoryKey(owner, name),
		Languages:  []string{},
		Branches:   []*Branch{},
		Commits:    map[string]Commit{},
		OwnCommits: []string{},
	}
}

// RepositoryKey builds the natural identifier of a repository.
func RepositoryKey(owner, name string) string {
	return owner + "/" + name
}

// Branch returns the branch with the given name, or nil.
func (r *Repository) Branch(name string) *Branch {
	for _, b := range r.Branches {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Branch is a ref under refs/heads/.
// Count is the number of commits by the tracked user reachable from RootID.
type Branch struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	RootID  string   `json:"rootId"`
	Commits []string `json:"commits"`
}

// Commit is immutable once fetched and keyed by OID.
type Commit struct {
	OID           string    `json:"oid"`
	CommitterID   string    `json:"committerId,omitempty"`
	Additions     int       `json:"additions"`
	Deletions     int       `json:"deletions"`
	ChangedFiles  int       `json:"changedFiles"`
	CommittedDate time.Time `json:"committedDate"`
}

// CrawlPosition marks where commit-history pagination must resume.
// Without Commits and Cursor it only says that BranchName is done.
type CrawlPosition struct {
	RepoKey    string   `json:"repoKey"`
	BranchName string   `json:"branchName"`
	Commits    []Commit `json:"commits,omitempty"`
	Cursor     *Cursor  `json:"cursor,omitempty"`
}

// HasPartial reports whether the position carries an interrupted mid-branch fetch.
func (p *CrawlPosition) HasPartial() bool {
	return p != nil && len(p.Commits) > 0 && p.Cursor != nil
}

// CrawlState is the persisted checkpoint of a crawl.
type CrawlState struct {
	CrawlType    CrawlType      `json:"crawlType,omitempty"`
	Repositories []*Repository  `json:"repositories"`
	Position     *CrawlPosition `json:"position,omitempty"`
}

// FindRepository returns the repository with the given key, or nil.
func FindRepository(repos []*Repository, key string) *Repository {
	i := slices.IndexFunc(repos, func(r *Repository) bool { return r.Key == key })
	if i < 0 {
		return nil
	}
	return repos[i]
}
