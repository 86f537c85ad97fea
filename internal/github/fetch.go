// internal/github/fetch.go
package github

import (
	"context"
	"fmt"
	"time"

	custom_errors "github-contributions/internal/errors"
	"github-contributions/internal/metrics"
	"github-contributions/internal/model"
)

// Fetcher translates GraphQL pages into the internal model.
type Fetcher struct {
	q       Querier
	metrics *metrics.Metrics
}

// NewFetcher creates a Fetcher issuing its queries through q.
func NewFetcher(q Querier, m *metrics.Metrics) *Fetcher {
	return &Fetcher{q: q, metrics: m}
}

// HistoryPage is one descending page of a branch's commit history.
type HistoryPage struct {
	TotalCount      int
	Commits         []model.Commit
	HasPreviousPage bool
	StartCursor     model.Cursor
}

type pageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	EndCursor       string `json:"endCursor"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor"`
}

type userResponse struct {
	User *struct {
		ID string `json:"id"`
	} `json:"user"`
}

type repositoriesResponse struct {
	User *struct {
		Repositories struct {
			TotalCount int              `json:"totalCount"`
			PageInfo   pageInfo         `json:"pageInfo"`
			Nodes      []repositoryNode `json:"nodes"`
		} `json:"repositories"`
	} `json:"user"`
}

type repositoryNode struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	Languages struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"languages"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	DefaultBranchRef *struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`
}

type branchesResponse struct {
	Repository *struct {
		Refs struct {
			TotalCount int       `json:"totalCount"`
			PageInfo   pageInfo  `json:"pageInfo"`
			Nodes      []refNode `json:"nodes"`
		} `json:"refs"`
	} `json:"repository"`
}

type refNode struct {
	Name   string `json:"name"`
	Target struct {
		OID     string `json:"oid"`
		History *struct {
			TotalCount int `json:"totalCount"`
		} `json:"history"`
	} `json:"target"`
}

type historyResponse struct {
	Repository *struct {
		Ref *struct {
			Target struct {
				History *struct {
					TotalCount int           `json:"totalCount"`
					PageInfo   pageInfo      `json:"pageInfo"`
					Nodes      []historyNode `json:"nodes"`
				} `json:"history"`
			} `json:"target"`
		} `json:"ref"`
	} `json:"repository"`
}

type historyNode struct {
	Committer struct {
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"committer"`
	OID           string    `json:"oid"`
	Additions     int       `json:"additions"`
	Deletions     int       `json:"deletions"`
	ChangedFiles  int       `json:"changedFiles"`
	CommittedDate time.Time `json:"committedDate"`
}

// UserID resolves the GraphQL node id of login.
func (f *Fetcher) UserID(ctx context.Context, login string) (string, error) {
	query := fmt.Sprintf("query {\n  user(login: %s) {\n    id\n  }\n}", quote(login))

	var resp userResponse
	if err := f.q.Query(ctx, query, &resp); err != nil {
		return "", fmt.Errorf("lookup user %q: %w", login, err)
	}
	if resp.User == nil || resp.User.ID == "" {
		return "", &custom_errors.ErrUserNotFound{Login: login}
	}
	return resp.User.ID, nil
}

// Repositories lists every repository login owns, collaborates on or sees as an
// organization member, in API order.
func (f *Fetcher) Repositories(ctx context.Context, login string) ([]*model.Repository, error) {
	var repos []*model.Repository
	var cursor *model.Cursor
	for {
		page := Paginated(Page{
			Resource: "repositories",
			Cursor:   cursor,
			Filter:   "affiliations: [OWNER, COLLABORATOR, ORGANIZATION_MEMBER]",
			Fields: `
				name
				isPrivate
				languages(first: 5) {
					nodes {
						name
					}
				}
				owner {
					login
				}
				defaultBranchRef {
					name
				}`,
		})
		query := fmt.Sprintf("query {\n  user(login: %s) {\n%s\n  }\n}", quote(login), page)

		var resp repositoriesResponse
		if err := f.q.Query(ctx, query, &resp); err != nil {
			return nil, fmt.Errorf("list repositories of %q: %w", login, err)
		}
		f.metrics.PageFetched("repositories")
		if resp.User == nil {
			return nil, &custom_errors.ErrUserNotFound{Login: login}
		}

		conn := resp.User.Repositories
		for _, node := range conn.Nodes {
			repo := model.NewRepository(node.Owner.Login, node.Name)
			repo.IsPrivate = node.IsPrivate
			for _, lang := range node.Languages.Nodes {
				repo.Languages = append(repo.Languages, lang.Name)
			}
			if node.DefaultBranchRef != nil {
				repo.DefaultBranchName = node.DefaultBranchRef.Name
			}
			repos = append(repos, repo)
		}

		if !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == "" {
			return repos, nil
		}
		next := model.ParseCursor(conn.PageInfo.EndCursor)
		cursor = &next
	}
}

// Branches lists the heads of repo together with the number of commits authored by userID
// on each of them. A repository that disappeared yields no branches.
func (f *Fetcher) Branches(ctx context.Context, repo *model.Repository, userID string) ([]*model.Branch, error) {
	var branches []*model.Branch
	var cursor *model.Cursor
	for {
		page := Paginated(Page{
			Resource: "refs",
			Cursor:   cursor,
			Filter:   `refPrefix: "refs/heads/"`,
			Fields: fmt.Sprintf(`
				name
				target {
					... on Commit {
						oid
						history(author: { id: %s }) {
							totalCount
						}
					}
				}`, quote(userID)),
		})
		query := fmt.Sprintf("query {\n  repository(owner: %s, name: %s) {\n%s\n  }\n}",
			quote(repo.Owner), quote(repo.Name), page)

		var resp branchesResponse
		if err := f.q.Query(ctx, query, &resp); err != nil {
			return nil, fmt.Errorf("list branches of %s: %w", repo.Key, err)
		}
		f.metrics.PageFetched("refs")
		if resp.Repository == nil {
			return branches, nil
		}

		conn := resp.Repository.Refs
		for _, node := range conn.Nodes {
			// Heads pointing at something other than a commit carry no history.
			if node.Target.OID == "" || node.Target.History == nil {
				continue
			}
			branches = append(branches, &model.Branch{
				Name:    node.Name,
				Count:   node.Target.History.TotalCount,
				RootID:  node.Target.OID,
				Commits: []string{},
			})
		}

		if !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == "" {
			return branches, nil
		}
		next := model.ParseCursor(conn.PageInfo.EndCursor)
		cursor = &next
	}
}

// History fetches the page of commits by userID that precedes cursor on branch.
// A branch that no longer exists yields an empty final page.
func (f *Fetcher) History(ctx context.Context, repo *model.Repository, branch, userID string, cursor model.Cursor) (HistoryPage, error) {
	p := Page{
		Resource: "history",
		Filter:   fmt.Sprintf("author: { id: %s }", quote(userID)),
		Fields: `
			committer {
				user {
					id
				}
			}
			oid
			additions
			deletions
			changedFiles
			committedDate`,
		Descending: true,
	}
	if !cursor.IsZero() {
		p.Cursor = &cursor
	}
	query := fmt.Sprintf("query {\n  repository(owner: %s, name: %s) {\n    ref(qualifiedName: %s) {\n      target {\n        ... on Commit {\n%s\n        }\n      }\n    }\n  }\n}",
		quote(repo.Owner), quote(repo.Name), quote(branch), Paginated(p))

	var resp historyResponse
	if err := f.q.Query(ctx, query, &resp); err != nil {
		return HistoryPage{}, fmt.Errorf("fetch history of %s:%s: %w", repo.Key, branch, err)
	}
	f.metrics.PageFetched("history")

	if resp.Repository == nil || resp.Repository.Ref == nil || resp.Repository.Ref.Target.History == nil {
		return HistoryPage{}, nil
	}

	conn := resp.Repository.Ref.Target.History
	page := HistoryPage{
		TotalCount:      conn.TotalCount,
		HasPreviousPage: conn.PageInfo.HasPreviousPage,
		Commits:         make([]model.Commit, 0, len(conn.Nodes)),
	}
	if conn.PageInfo.StartCursor != "" {
		page.StartCursor = model.ParseCursor(conn.PageInfo.StartCursor)
	}
	for _, node := range conn.Nodes {
		commit := model.Commit{
			OID:           node.OID,
			Additions:     node.Additions,
			Deletions:     node.Deletions,
			ChangedFiles:  node.ChangedFiles,
			CommittedDate: node.CommittedDate.UTC(),
		}
		if node.Committer.User != nil {
			commit.CommitterID = node.Committer.User.ID
		}
		page.Commits = append(page.Commits, commit)
	}
	f.metrics.CommitsFetched(len(page.Commits))
	return page, nil
}
