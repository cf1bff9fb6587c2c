package integration

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

// CachingBlobStore keeps recently fetched objects in an expiring LRU.
// Listings always go to the wrapped store; failed fetches are not cached.
type CachingBlobStore struct {
	core.BlobStore
	cache *expirable.LRU[string, []byte]
}

var _ core.BlobStore = (*CachingBlobStore)(nil)

// NewCachingBlobStore wraps store with a cache of size entries living ttl.
func NewCachingBlobStore(store core.BlobStore, size int, ttl time.Duration) *CachingBlobStore {
	return &CachingBlobStore{
		BlobStore: store,
		cache:     expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// Fetch returns the cached object or reads it from the wrapped store.
func (s *CachingBlobStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(name); ok {
		return data, nil
	}
	data, err := s.BlobStore.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(name, data)
	return data, nil
}

// Len reports the number of cached objects.
func (s *CachingBlobStore) Len() int {
	return s.cache.Len()
}
