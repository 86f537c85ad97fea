// internal/crawler/commits.go
package crawler

import (
	"context"
	"fmt"

	"github-contributions/internal/model"
)

// initCommits walks every branch of every repository and fetches the commits that are
// missing below its head, skipping everything before the restored position.
func (c *Crawler) initCommits(ctx context.Context) error {
	c.dropStalePosition()

	for _, repo := range c.repositories {
		if c.position != nil && c.position.RepoKey != repo.Key {
			continue
		}
		for _, branch := range repo.Branches {
			if c.position != nil {
				if c.position.BranchName != branch.Name {
					continue
				}
				if !c.position.HasPartial() {
					// Boundary checkpoint: this branch completed in an earlier pass.
					c.position = nil
					continue
				}
			}

			commits, err := c.fetchCommits(ctx, repo, branch)
			if err != nil {
				return fmt.Errorf("fetch commits of %s@%s: %w", repo.Key, branch.Name, err)
			}
			if len(commits) == 0 {
				continue
			}

			added := c.mergeCommits(repo, branch, commits)
			c.logger.Info("Fetched branch commits", "repo", repo.Key, "branch", branch.Name, "fetched", len(commits), "new", added)
			if _, err := c.Save(ctx, &model.CrawlPosition{RepoKey: repo.Key, BranchName: branch.Name}); err != nil {
				return err
			}
		}
	}
	return nil
}

// dropStalePosition forgets a restored position whose repository or branch no longer
// exists. The pass then starts from the first repository; branches that are already
// complete cost no history requests.
func (c *Crawler) dropStalePosition() {
	if c.position == nil {
		return
	}
	repo := model.FindRepository(c.repositories, c.position.RepoKey)
	if repo != nil && repo.Branch(c.position.BranchName) != nil {
		return
	}
	c.logger.Warn("Dropping crawl position for a repository or branch that no longer exists",
		"repo", c.position.RepoKey, "branch", c.position.BranchName, "partial_commits", len(c.position.Commits))
	c.position = nil
}

// fetchCommits pages backwards through the history of branch until no earlier commits
// remain, starting either below the commits already known or from an interrupted fetch.
func (c *Crawler) fetchCommits(ctx context.Context, repo *model.Repository, branch *model.Branch) ([]model.Commit, error) {
	fetched := len(branch.Commits)
	hasPrevious := fetched < branch.Count
	cursor := model.HistoryCursor(branch.RootID, branch.Count-fetched)
	var commits []model.Commit

	if c.position.HasPartial() {
		commits = c.position.Commits
		cursor = *c.position.Cursor
		hasPrevious = cursor.HasMore()
		c.position = nil
		c.logger.Info("Resuming interrupted branch fetch", "repo", repo.Key, "branch", branch.Name, "commits", len(commits))
	}

	for hasPrevious {
		before := len(commits)
		page, err := c.source.History(ctx, repo, branch.Name, c.userID, cursor)
		if err != nil {
			return nil, err
		}
		hasPrevious = page.HasPreviousPage
		cursor = page.StartCursor
		commits = append(commits, page.Commits...)

		c.logger.Debug("Fetched history page", "repo", repo.Key, "branch", branch.Name, "commits", len(commits), "total", page.TotalCount)
		if len(page.Commits) == 0 {
			break
		}

		if len(commits)/c.checkpointEvery > before/c.checkpointEvery {
			checkpoint := cursor
			position := &model.CrawlPosition{
				RepoKey:    repo.Key,
				BranchName: branch.Name,
				Commits:    commits,
				Cursor:     &checkpoint,
			}
			if _, err := c.Save(ctx, position); err != nil {
				return nil, err
			}
		}
	}
	return commits, nil
}

// mergeCommits records commits on repo and branch without duplicating any OID and
// returns how many were new to the repository.
func (c *Crawler) mergeCommits(repo *model.Repository, branch *model.Branch, commits []model.Commit) int {
	onBranch := make(map[string]struct{}, len(branch.Commits))
	for _, oid := range branch.Commits {
		onBranch[oid] = struct{}{}
	}
	own := make(map[string]struct{}, len(repo.OwnCommits))
	for _, oid := range repo.OwnCommits {
		own[oid] = struct{}{}
	}

	added := 0
	for _, commit := range commits {
		if _, ok := repo.Commits[commit.OID]; !ok {
			repo.Commits[commit.OID] = commit
			added++
		}
		if _, ok := onBranch[commit.OID]; !ok {
			branch.Commits = append(branch.Commits, commit.OID)
			onBranch[commit.OID] = struct{}{}
		}
		if _, ok := own[commit.OID]; !ok && commit.CommitterID == c.userID {
			repo.OwnCommits = append(repo.OwnCommits, commit.OID)
			own[commit.OID] = struct{}{}
		}
	}
	return added
}
