// internal/storage/cached.go
package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore fronts another store with an LRU of recently read or written items.
// Writes go through to the backend first; the cache is only updated once the backend
// accepted the value.
type CachedStore struct {
	backend Store
	lru     *lru.Cache[string, string]
}

func NewCachedStore(backend Store, size int) (*CachedStore, error) {
	l, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{backend: backend, lru: l}, nil
}

func (c *CachedStore) ReadItem(ctx context.Context, id string) (string, bool, error) {
	if data, ok := c.lru.Get(id); ok {
		return data, true, nil
	}
	data, ok, err := c.backend.ReadItem(ctx, id)
	if err != nil || !ok {
		return data, ok, err
	}
	c.lru.Add(id, data)
	return data, true, nil
}

func (c *CachedStore) WriteItem(ctx context.Context, id, data string) error {
	if err := c.backend.WriteItem(ctx, id, data); err != nil {
		c.lru.Remove(id)
		return err
	}
	c.lru.Add(id, data)
	return nil
}
