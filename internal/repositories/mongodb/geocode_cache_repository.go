package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
	"routeplanner/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type geocodeCacheEntry struct {
	Key        string                  `bson:"_id"`
	Kind       string                  `bson:"kind"`
	Candidates []models.PlaceCandidate `bson:"candidates"`
	ExpiresAt  time.Time               `bson:"expires_at"`
	UpdatedAt  time.Time               `bson:"updated_at"`
}

type geocodeCacheRepository struct {
	collection *mongo.Collection
}

// NewGeocodeCacheRepository stores geocoding results in the geocode_cache
// collection. Expired documents are removed by the TTL index created in
// migration 1; Get also ignores them in case the monitor has not run yet.
func NewGeocodeCacheRepository(db *mongo.Database) interfaces.GeocodeCacheRepository {
	return &geocodeCacheRepository{
		collection: db.Collection(database.GeocodeCacheCollection),
	}
}

func (r *geocodeCacheRepository) Get(ctx context.Context, key string) ([]models.PlaceCandidate, bool, error) {
	var entry geocodeCacheEntry
	err := r.collection.FindOne(ctx, bson.M{
		"_id":        key,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get geocode cache entry: %w", err)
	}

	if entry.Candidates == nil {
		entry.Candidates = []models.PlaceCandidate{}
	}
	return entry.Candidates, true, nil
}

func (r *geocodeCacheRepository) Put(ctx context.Context, key, kind string, candidates []models.PlaceCandidate, ttl time.Duration) error {
	now := time.Now()
	entry := geocodeCacheEntry{
		Key:        key,
		Kind:       kind,
		Candidates: candidates,
		ExpiresAt:  now.Add(ttl),
		UpdatedAt:  now,
	}

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store geocode cache entry: %w", err)
	}

	return nil
}
