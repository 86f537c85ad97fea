// internal/storage/storage.go

// Package storage is the durable key/value contract the crawler and the stats
// aggregator persist through. Values are opaque JSON strings; callers own the
// serialization shape.
package storage

import "context"

// Store reads and writes whole items by id. A write replaces the previous value.
type Store interface {
	// ReadItem returns the stored value and whether it exists.
	ReadItem(ctx context.Context, id string) (string, bool, error)
	// WriteItem stores data under id.
	WriteItem(ctx context.Context, id, data string) error
}

// CrawlStateID is the item holding a user's crawl checkpoint.
func CrawlStateID(userID string) string { return userID }

// StatsPositionID is the item holding the aggregator's bookkeeping.
func StatsPositionID(userID string) string { return userID + "-stats" }

// StatsID is the item holding the published statistics.
func StatsID(login string) string { return login }

// RepositoriesID is the item holding the published repository summary.
func RepositoriesID(login string) string { return login + "-repositories" }
