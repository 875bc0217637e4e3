package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CacheWarmingService primes the fallback location and the places cache at startup.
type CacheWarmingService struct {
	geolocator *Geolocator
	dispatcher *Dispatcher
	terms      []string
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(geolocator *Geolocator, dispatcher *Dispatcher, terms []string) *CacheWarmingService {
	return &CacheWarmingService{
		geolocator: geolocator,
		dispatcher: dispatcher,
		terms:      terms,
	}
}

// WarmCache resolves the default place, then searches around it for each
// configured term so the first users denied location get cached answers.
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	log.Info().Int("terms", len(s.terms)).Msg("Starting cache warming")

	center, err := s.geolocator.Fallback(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm default location: %w", err)
	}

	warmed := 0
	for _, term := range s.terms {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.dispatcher.FindNearbyFacilities(ctx, center.Coordinate, term); err != nil {
			log.Warn().Err(err).Str("term", term).Msg("Failed to warm facility search")
			continue
		}
		warmed++
	}

	log.Info().Int("warmed", warmed).Str("center", center.Coordinate.String()).Msg("Cache warming completed")
	return nil
}
