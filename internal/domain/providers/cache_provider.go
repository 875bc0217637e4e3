package providers

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by CacheProvider.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider is a byte-oriented TTL cache shared by the provider adapters.
type CacheProvider interface {
	// Get retrieves a value, returning ErrCacheMiss if absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value for ttlSeconds; zero means no expiry
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}
