// internal/crawler/source_test.go
package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github-contributions/internal/github"
	"github-contributions/internal/model"
)

const testUserID = "U_1"

var errSourceDown = errors.New("source unavailable")

// fakeSource is a small in-memory GitHub. Each branch holds its commit history newest first,
// and history pages are served the way GitHub does: "before: <head> <n>" with "last: L"
// returns the commits at offsets [n-L, n) below head.
type fakeSource struct {
	mu        sync.Mutex
	repos     []*fakeRepo
	seq       int
	calls     int
	failOn    int
	failRepos bool
}

type fakeRepo struct {
	owner, name string
	private     bool
	branches    []*fakeBranch
}

type fakeBranch struct {
	name    string
	history []model.Commit
}

func newFakeSource() *fakeSource { return &fakeSource{} }

func (s *fakeSource) repo(owner, name string, private bool) *fakeRepo {
	for _, r := range s.repos {
		if r.owner == owner && r.name == name {
			return r
		}
	}
	r := &fakeRepo{owner: owner, name: name, private: private}
	s.repos = append(s.repos, r)
	return r
}

func (r *fakeRepo) branch(name string) *fakeBranch {
	for _, b := range r.branches {
		if b.name == name {
			return b
		}
	}
	return nil
}

// commits creates n commits by committer, newest first.
func (s *fakeSource) commits(n int, committer string) []model.Commit {
	out := make([]model.Commit, n)
	for i := n - 1; i >= 0; i-- {
		s.seq++
		out[i] = model.Commit{
			OID:           fmt.Sprintf("c%05d", s.seq),
			CommitterID:   committer,
			Additions:     s.seq % 7,
			Deletions:     s.seq % 3,
			ChangedFiles:  1,
			CommittedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Hour),
		}
	}
	return out
}

// addBranch creates a branch with n commits by the tracked user.
func (s *fakeSource) addBranch(repoKey string, private bool, branch string, n int) {
	owner, name := splitKey(repoKey)
	r := s.repo(owner, name, private)
	r.branches = append(r.branches, &fakeBranch{name: branch, history: s.commits(n, testUserID)})
}

// forkBranch creates branch from an existing one plus extra commits on top.
func (s *fakeSource) forkBranch(repoKey, from, branch string, extra int) {
	owner, name := splitKey(repoKey)
	r := s.repo(owner, name, false)
	base := r.branch(from).history
	history := append(s.commits(extra, testUserID), base...)
	r.branches = append(r.branches, &fakeBranch{name: branch, history: history})
}

// push adds n commits on top of branch.
func (s *fakeSource) push(repoKey, branch string, n int, committer string) {
	owner, name := splitKey(repoKey)
	b := s.repo(owner, name, false).branch(branch)
	b.history = append(s.commits(n, committer), b.history...)
}

func (s *fakeSource) deleteBranch(repoKey, branch string) {
	owner, name := splitKey(repoKey)
	r := s.repo(owner, name, false)
	for i, b := range r.branches {
		if b.name == branch {
			r.branches = append(r.branches[:i], r.branches[i+1:]...)
			return
		}
	}
}

func (s *fakeSource) historyCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSource) UserID(ctx context.Context, login string) (string, error) {
	return testUserID, nil
}

func (s *fakeSource) Repositories(ctx context.Context, login string) ([]*model.Repository, error) {
	if s.failRepos {
		return nil, errSourceDown
	}
	out := make([]*model.Repository, 0, len(s.repos))
	for _, r := range s.repos {
		repo := model.NewRepository(r.owner, r.name)
		repo.IsPrivate = r.private
		repo.Languages = []string{"Go"}
		out = append(out, repo)
	}
	return out, nil
}

func (s *fakeSource) Branches(ctx context.Context, repo *model.Repository, userID string) ([]*model.Branch, error) {
	r := s.repo(repo.Owner, repo.Name, repo.IsPrivate)
	out := make([]*model.Branch, 0, len(r.branches))
	for _, b := range r.branches {
		out = append(out, &model.Branch{
			Name:    b.name,
			Count:   len(b.history),
			RootID:  b.history[0].OID,
			Commits: []string{},
		})
	}
	return out, nil
}

func (s *fakeSource) History(ctx context.Context, repo *model.Repository, branch, userID string, cursor model.Cursor) (github.HistoryPage, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	if s.failOn > 0 && call == s.failOn {
		return github.HistoryPage{}, errSourceDown
	}

	b := s.repo(repo.Owner, repo.Name, repo.IsPrivate).branch(branch)
	if b == nil {
		return github.HistoryPage{}, nil
	}
	head := -1
	for i, c := range b.history {
		if c.OID == cursor.Head {
			head = i
			break
		}
	}
	if head < 0 {
		return github.HistoryPage{}, nil
	}

	end := cursor.Remaining
	start := max(0, end-min(github.PageSize, end))
	return github.HistoryPage{
		TotalCount:      len(b.history) - head,
		Commits:         append([]model.Commit(nil), b.history[head+start:head+end]...),
		HasPreviousPage: start > 0,
		StartCursor:     model.HistoryCursor(cursor.Head, start),
	}, nil
}

func splitKey(key string) (string, string) {
	owner, name, _ := strings.Cut(key, "/")
	return owner, name
}
