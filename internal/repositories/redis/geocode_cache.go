package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
	"routeplanner/pkg/cache"
)

const geocodeKeyPrefix = "planner:geocode:"

type geocodeCacheRepository struct {
	cache *cache.RedisCache
}

// NewGeocodeCacheRepository caches geocoding results in Redis and lets key
// expiry handle the TTL.
func NewGeocodeCacheRepository(c *cache.RedisCache) interfaces.GeocodeCacheRepository {
	return &geocodeCacheRepository{cache: c}
}

func (r *geocodeCacheRepository) Get(ctx context.Context, key string) ([]models.PlaceCandidate, bool, error) {
	candidates := []models.PlaceCandidate{}
	if err := r.cache.Get(ctx, geocodeKeyPrefix+key, &candidates); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read geocode cache: %w", err)
	}
	return candidates, true, nil
}

func (r *geocodeCacheRepository) Put(ctx context.Context, key, _ string, candidates []models.PlaceCandidate, ttl time.Duration) error {
	if candidates == nil {
		candidates = []models.PlaceCandidate{}
	}
	if err := r.cache.Set(ctx, geocodeKeyPrefix+key, candidates, ttl); err != nil {
		return fmt.Errorf("failed to write geocode cache: %w", err)
	}
	return nil
}
