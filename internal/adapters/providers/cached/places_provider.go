package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
	"github.com/rs/zerolog/log"
)

const cacheName = "places"

// PlacesProvider wraps a PlacesProvider with a TTL cache. Only successful
// responses are cached, so a failing strategy is asked again next time.
type PlacesProvider struct {
	inner   providers.PlacesProvider
	cache   providers.CacheProvider
	ttl     int
	metrics *observability.Metrics
}

// NewPlacesProvider creates a caching decorator. metrics may be nil.
func NewPlacesProvider(inner providers.PlacesProvider, cache providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) providers.PlacesProvider {
	seconds := int(ttl / time.Second)
	if seconds <= 0 {
		seconds = 600
	}
	return &PlacesProvider{
		inner:   inner,
		cache:   cache,
		ttl:     seconds,
		metrics: metrics,
	}
}

// QueryKey derives the cache key of a query. Centers are rounded to about 10 m.
func QueryKey(query providers.PlaceQuery) string {
	raw := fmt.Sprintf("%s|%.4f,%.4f|%d|%d|%s",
		strings.Join(query.Categories, ","),
		query.Center.Latitude, query.Center.Longitude,
		query.RadiusMeters, query.Limit,
		strings.ToLower(strings.TrimSpace(query.Term)))
	sum := sha256.Sum256([]byte(raw))
	return "places:v1:" + hex.EncodeToString(sum[:])
}

// SearchPlaces serves from cache when possible.
func (p *PlacesProvider) SearchPlaces(ctx context.Context, query providers.PlaceQuery) ([]entities.FacilityCandidate, error) {
	key := QueryKey(query)

	if data, err := p.cache.Get(ctx, key); err == nil {
		var candidates []entities.FacilityCandidate
		if err := json.Unmarshal(data, &candidates); err == nil {
			observability.RecordCacheHit(ctx, p.metrics, cacheName)
			return candidates, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached places response")
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		log.Warn().Err(err).Msg("Places cache unavailable, querying provider")
	}
	observability.RecordCacheMiss(ctx, p.metrics, cacheName)

	candidates, err := p.inner.SearchPlaces(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(candidates); err == nil {
		if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache places response")
		}
	}
	return candidates, nil
}
