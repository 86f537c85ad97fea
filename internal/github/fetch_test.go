// internal/github/fetch_test.go
package github

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	custom_errors "github-contributions/internal/errors"
	"github-contributions/internal/model"
)

// MockQuerier is a mock of the Querier interface. The first return value is the JSON
// data member that gets decoded into out.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Query(ctx context.Context, query string, out any) error {
	args := m.Called(ctx, query)
	if err := args.Error(1); err != nil {
		return err
	}
	return json.Unmarshal([]byte(args.String(0)), out)
}

func queryContaining(parts ...string) any {
	return mock.MatchedBy(func(q string) bool {
		for _, p := range parts {
			if !strings.Contains(q, p) {
				return false
			}
		}
		return true
	})
}

func TestFetcher_UserID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the node id", func(t *testing.T) {
		q := new(MockQuerier)
		q.On("Query", ctx, queryContaining(`user(login: "octocat")`)).Return(`{"user": {"id": "U_1"}}`, nil).Once()

		id, err := NewFetcher(q, nil).UserID(ctx, "octocat")

		require.NoError(t, err)
		assert.Equal(t, "U_1", id)
		q.AssertExpectations(t)
	})

	t.Run("reports unknown users", func(t *testing.T) {
		q := new(MockQuerier)
		q.On("Query", ctx, mock.Anything).Return(`{"user": null}`, nil).Once()

		_, err := NewFetcher(q, nil).UserID(ctx, "ghost")

		var notFound *custom_errors.ErrUserNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "ghost", notFound.Login)
	})
}

func TestFetcher_Repositories(t *testing.T) {
	ctx := context.Background()
	q := new(MockQuerier)

	q.On("Query", ctx, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "repositories(first: 100, affiliations") && !strings.Contains(s, "after:")
	})).Return(`{"user": {"repositories": {
		"totalCount": 2,
		"pageInfo": {"hasNextPage": true, "endCursor": "c1"},
		"nodes": [{"name": "site", "isPrivate": false, "owner": {"login": "acme"},
			"languages": {"nodes": [{"name": "Go"}, {"name": "HTML"}]},
			"defaultBranchRef": {"name": "main"}}]
	}}}`, nil).Once()
	q.On("Query", ctx, queryContaining(`after: "c1"`)).Return(`{"user": {"repositories": {
		"totalCount": 2,
		"pageInfo": {"hasNextPage": false, "endCursor": "c2"},
		"nodes": [{"name": "secret", "isPrivate": true, "owner": {"login": "acme"},
			"languages": {"nodes": []}, "defaultBranchRef": null}]
	}}}`, nil).Once()

	repos, err := NewFetcher(q, nil).Repositories(ctx, "octocat")

	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "acme/site", repos[0].Key)
	assert.Equal(t, []string{"Go", "HTML"}, repos[0].Languages)
	assert.Equal(t, "main", repos[0].DefaultBranchName)
	assert.False(t, repos[0].IsPrivate)
	assert.Equal(t, "acme/secret", repos[1].Key)
	assert.True(t, repos[1].IsPrivate)
	assert.Empty(t, repos[1].DefaultBranchName)
	assert.NotNil(t, repos[1].Commits)
	q.AssertExpectations(t)
}

func TestFetcher_Branches(t *testing.T) {
	ctx := context.Background()
	repo := model.NewRepository("acme", "site")

	t.Run("reads head and authored commit count", func(t *testing.T) {
		q := new(MockQuerier)
		q.On("Query", ctx, queryContaining(`repository(owner: "acme", name: "site")`, `history(author: { id: "U_1" })`)).
			Return(`{"repository": {"refs": {
				"totalCount": 3,
				"pageInfo": {"hasNextPage": false, "endCursor": "x"},
				"nodes": [
					{"name": "main", "target": {"oid": "h1", "history": {"totalCount": 1500}}},
					{"name": "tagged", "target": {}},
					{"name": "dev", "target": {"oid": "h2", "history": {"totalCount": 3}}}
				]
			}}}`, nil).Once()

		branches, err := NewFetcher(q, nil).Branches(ctx, repo, "U_1")

		require.NoError(t, err)
		require.Len(t, branches, 2)
		assert.Equal(t, model.Branch{Name: "main", Count: 1500, RootID: "h1", Commits: []string{}}, *branches[0])
		assert.Equal(t, "dev", branches[1].Name)
	})

	t.Run("a vanished repository has no branches", func(t *testing.T) {
		q := new(MockQuerier)
		q.On("Query", ctx, mock.Anything).Return(`{"repository": null}`, nil).Once()

		branches, err := NewFetcher(q, nil).Branches(ctx, repo, "U_1")

		require.NoError(t, err)
		assert.Empty(t, branches)
	})
}

func TestFetcher_History(t *testing.T) {
	ctx := context.Background()
	repo := model.NewRepository("acme", "site")

	t.Run("parses a descending page", func(t *testing.T) {
		q := new(MockQuerier)
		q.On("Query", ctx, queryContaining(`ref(qualifiedName: "main")`, `history(last: 2, before: "h1 2", author: { id: "U_1" })`)).
			Return(`{"repository": {"ref": {"target": {"history": {
				"totalCount": 1500,
				"pageInfo": {"hasPreviousPage": false, "startCursor": "h1 0"},
				"nodes": [
					{"oid": "c2", "additions": 3, "deletions": 1, "changedFiles": 2,
					 "committedDate": "2024-03-01T10:20:00+02:00", "committer": {"user": {"id": "U_1"}}},
					{"oid": "c1", "additions": 1, "deletions": 0, "changedFiles": 1,
					 "committedDate": "2024-02-29T23:59:00Z", "committer": {"user": null}}
				]
			}}}}}`, nil).Once()

		page, err := NewFetcher(q, nil).History(ctx, repo, "main", "U_1", model.HistoryCursor("h1", 2))

		require.NoError(t, err)
		assert.False(t, page.HasPreviousPage)
		assert.Equal(t, model.Cursor{Head: "h1", Remaining: 0}, page.StartCursor)
		require.Len(t, page.Commits, 2)
		assert.Equal(t, model.Commit{
			OID:           "c2",
			CommitterID:   "U_1",
			Additions:     3,
			Deletions:     1,
			ChangedFiles:  2,
			CommittedDate: time.Date(2024, 3, 1, 8, 20, 0, 0, time.UTC),
		}, page.Commits[0])
		assert.Empty(t, page.Commits[1].CommitterID)
		q.AssertExpectations(t)
	})

	t.Run("a deleted ref yields an empty final page", func(t *testing.T) {
		q := new(MockQuerier)
		q.On("Query", ctx, mock.Anything).Return(`{"repository": {"ref": null}}`, nil).Once()

		page, err := NewFetcher(q, nil).History(ctx, repo, "gone", "U_1", model.HistoryCursor("h1", 20))

		require.NoError(t, err)
		assert.False(t, page.HasPreviousPage)
		assert.Empty(t, page.Commits)
	})

	t.Run("propagates API errors", func(t *testing.T) {
		q := new(MockQuerier)
		apiErr := errors.New("secondary rate limit")
		q.On("Query", ctx, mock.Anything).Return("", apiErr).Once()

		_, err := NewFetcher(q, nil).History(ctx, repo, "main", "U_1", model.HistoryCursor("h1", 20))

		assert.ErrorIs(t, err, apiErr)
	})
}
