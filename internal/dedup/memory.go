package dedup

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store used by tests and throwaway runs.
// Entries never expire; dedup evidence should outlive any single run.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Has implements Store.
func (s *MemoryStore) Has(ctx context.Context, id string) (bool, error) {
	_, ok := s.cache.Get(id)
	return ok, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, id string, at time.Time) error {
	s.cache.SetDefault(id, at.UTC())
	return nil
}
