package interfaces

import (
	"context"
	"time"

	"routeplanner/internal/models"
)

const (
	GeocodeKindSearch  = "search"
	GeocodeKindReverse = "reverse"
)

type GeocodeCacheRepository interface {
	// Get returns the cached candidates for key. found is false on a miss or an expired entry.
	Get(ctx context.Context, key string) (candidates []models.PlaceCandidate, found bool, err error)
	Put(ctx context.Context, key, kind string, candidates []models.PlaceCandidate, ttl time.Duration) error
}
