package cache

import (
	"context"
	"time"

	"github.com/gramaarogya/backend/internal/domain/providers"
	gocache "github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = 5 * time.Minute

// MemoryAdapter is an in-process CacheProvider for deployments without Redis.
// Expired entries are purged by a background janitor every cleanup interval.
type MemoryAdapter struct {
	items *gocache.Cache
}

// NewMemoryAdapter creates an empty in-process cache.
func NewMemoryAdapter() *MemoryAdapter {
	return NewMemoryAdapterWithCleanup(defaultCleanupInterval)
}

// NewMemoryAdapterWithCleanup creates an in-process cache that sweeps expired entries every interval.
func NewMemoryAdapterWithCleanup(interval time.Duration) *MemoryAdapter {
	return &MemoryAdapter{items: gocache.New(gocache.NoExpiration, interval)}
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := a.items.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	value, ok := v.([]byte)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

// Set stores a value in cache with expiration
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	ttl := gocache.NoExpiration
	if expirationSeconds > 0 {
		ttl = time.Duration(expirationSeconds) * time.Second
	}
	a.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.items.Delete(key)
	return nil
}

// Exists checks if a key exists in cache
func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := a.items.Get(key)
	return ok, nil
}

// Len reports stored entries, including expired ones not yet swept.
func (a *MemoryAdapter) Len() int {
	return a.items.ItemCount()
}
