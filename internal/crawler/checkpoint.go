// internal/crawler/checkpoint.go
package crawler

import (
	"context"
	"encoding/json"
	"fmt"

	"github-contributions/internal/model"
	"github-contributions/internal/storage"
)

const writeKind = "crawl_state"

// Position returns the restored resume point that this pass has not reached yet.
func (c *Crawler) Position() *model.CrawlPosition { return c.position }

// Save persists the crawl state with position as the resume point.
//
// Nothing is written when the serialized state equals the last successful write; the
// returned bool reports whether a write happened. A failed write leaves the change-detection
// baseline untouched so the same state is written again on the next call.
func (c *Crawler) Save(ctx context.Context, position *model.CrawlPosition) (bool, error) {
	state := model.CrawlState{
		CrawlType:    c.crawlType,
		Repositories: c.repositories,
		Position:     position,
	}
	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("encode crawl state: %w", err)
	}

	if string(data) == c.lastData {
		c.logger.Debug("Crawl state unchanged, skipping write")
		c.metrics.WriteSkipped(writeKind)
		return false, nil
	}
	if err := c.store.WriteItem(ctx, storage.CrawlStateID(c.userID), string(data)); err != nil {
		return false, fmt.Errorf("write crawl state: %w", err)
	}

	c.lastData = string(data)
	c.hasChanged = true
	c.metrics.Write(writeKind)
	c.logger.Debug("Saved crawl state", "crawl_type", c.crawlType, "bytes", len(data), "partial", position.HasPartial())
	return true, nil
}

// Restore loads the last checkpoint. A user without one starts from an empty state.
func (c *Crawler) Restore(ctx context.Context) error {
	data, ok, err := c.store.ReadItem(ctx, storage.CrawlStateID(c.userID))
	if err != nil {
		return fmt.Errorf("read crawl state: %w", err)
	}
	if !ok {
		c.logger.Info("No crawl state stored, starting fresh")
		return nil
	}

	var state model.CrawlState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return fmt.Errorf("decode crawl state: %w", err)
	}
	for _, repo := range state.Repositories {
		normalize(repo)
	}

	c.crawlType = state.CrawlType
	c.repositories = state.Repositories
	if c.repositories == nil {
		c.repositories = []*model.Repository{}
	}
	c.position = state.Position
	c.lastData = data

	c.logger.Info("Restored crawl state", "crawl_type", crawlTypeLabel(c.crawlType), "repositories", len(c.repositories), "has_position", c.position != nil)
	return nil
}

// normalize replaces collections a hand-edited or older checkpoint may have left null.
func normalize(repo *model.Repository) {
	if repo.Languages == nil {
		repo.Languages = []string{}
	}
	if repo.Branches == nil {
		repo.Branches = []*model.Branch{}
	}
	if repo.Commits == nil {
		repo.Commits = map[string]model.Commit{}
	}
	if repo.OwnCommits == nil {
		repo.OwnCommits = []string{}
	}
	for _, b := range repo.Branches {
		if b.Commits == nil {
			b.Commits = []string{}
		}
	}
}
