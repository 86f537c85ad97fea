// internal/crawler/merge.go
package crawler

import (
	"maps"
	"slices"

	"github-contributions/internal/model"
)

// MergeRepositories reconciles freshly discovered repositories with cached ones.
//
// The result lists exactly the fresh repositories, in discovery order, with their fresh
// metadata. A repository that was cached under the same key keeps its fetched commits,
// own commits and branches. Repositories that were not rediscovered are dropped. Neither
// input is modified and the result shares no mutable state with them.
func MergeRepositories(cached, fresh []*model.Repository) []*model.Repository {
	merged := make([]*model.Repository, 0, len(fresh))
	for _, f := range fresh {
		repo := &model.Repository{
			Owner:             f.Owner,
			Name:              f.Name,
			Key:               f.Key,
			IsPrivate:         f.IsPrivate,
			DefaultBranchName: f.DefaultBranchName,
			Languages:         cloneOrEmpty(f.Languages),
			Branches:          cloneBranches(f.Branches),
			Commits:           cloneCommits(f.Commits),
			OwnCommits:        cloneOrEmpty(f.OwnCommits),
		}
		if old := model.FindRepository(cached, f.Key); old != nil {
			repo.Branches = cloneBranches(old.Branches)
			repo.Commits = cloneCommits(old.Commits)
			repo.OwnCommits = cloneOrEmpty(old.OwnCommits)
		}
		merged = append(merged, repo)
	}
	return merged
}

// MergeBranches reconciles freshly listed branches with cached ones.
//
// Name, count and head come from the fresh listing; a branch that was cached under the
// same name keeps its accumulated commit list. Branches that disappeared are dropped.
func MergeBranches(cached, fresh []*model.Branch) []*model.Branch {
	merged := make([]*model.Branch, 0, len(fresh))
	for _, f := range fresh {
		branch := &model.Branch{
			Name:    f.Name,
			Count:   f.Count,
			RootID:  f.RootID,
			Commits: cloneOrEmpty(f.Commits),
		}
		for _, old := range cached {
			if old.Name == f.Name {
				branch.Commits = cloneOrEmpty(old.Commits)
				break
			}
		}
		merged = append(merged, branch)
	}
	return merged
}

func cloneOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

func cloneCommits(m map[string]model.Commit) map[string]model.Commit {
	if m == nil {
		return map[string]model.Commit{}
	}
	return maps.Clone(m)
}

func cloneBranches(branches []*model.Branch) []*model.Branch {
	out := make([]*model.Branch, 0, len(branches))
	for _, b := range branches {
		c := *b
		c.Commits = cloneOrEmpty(b.Commits)
		out = append(out, &c)
	}
	return out
}
