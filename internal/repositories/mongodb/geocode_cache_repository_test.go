package mongodb

import (
	"context"
	"testing"
	"time"

	"routeplanner/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const cacheNamespace = "routeplanner.geocode_cache"

func TestGeocodeCacheRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("hit", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, cacheNamespace, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "search:5:powai"},
			{Key: "kind", Value: "search"},
			{Key: "candidates", Value: bson.A{
				bson.D{
					{Key: "display_name", Value: "Powai, Mumbai"},
					{Key: "coordinates", Value: bson.D{{Key: "lat", Value: 19.1176}, {Key: "lon", Value: 72.906}}},
				},
			}},
			{Key: "expires_at", Value: time.Now().Add(time.Hour)},
		}))
		repo := NewGeocodeCacheRepository(mt.DB)

		got, found, err := repo.Get(context.Background(), "search:5:powai")
		if err != nil || !found {
			mt.Fatalf("Get = found %v, err %v", found, err)
		}
		if len(got) != 1 || got[0].DisplayName != "Powai, Mumbai" || got[0].Coordinates.Lon != 72.906 {
			mt.Fatalf("candidates = %+v", got)
		}
	})

	mt.Run("cached empty result", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, cacheNamespace, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "search:5:nowhere"},
			{Key: "kind", Value: "search"},
		}))
		repo := NewGeocodeCacheRepository(mt.DB)

		got, found, err := repo.Get(context.Background(), "search:5:nowhere")
		if err != nil || !found {
			mt.Fatalf("Get = found %v, err %v", found, err)
		}
		if got == nil || len(got) != 0 {
			mt.Fatalf("candidates = %#v, want empty non-nil", got)
		}
	})

	mt.Run("miss", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, cacheNamespace, mtest.FirstBatch))
		repo := NewGeocodeCacheRepository(mt.DB)

		got, found, err := repo.Get(context.Background(), "reverse:19.117600,72.906000")
		if err != nil {
			mt.Fatalf("Get: %v", err)
		}
		if found || got != nil {
			mt.Fatalf("miss returned found=%v candidates=%+v", found, got)
		}
	})

	mt.Run("read error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad filter",
		}))
		repo := NewGeocodeCacheRepository(mt.DB)

		if _, found, err := repo.Get(context.Background(), "k"); err == nil || found {
			mt.Fatalf("Get = found %v, err %v", found, err)
		}
	})

	mt.Run("put", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "search:5:powai"}}}},
		))
		repo := NewGeocodeCacheRepository(mt.DB)

		candidates := []models.PlaceCandidate{{DisplayName: "Powai, Mumbai"}}
		if err := repo.Put(context.Background(), "search:5:powai", "search", candidates, time.Hour); err != nil {
			mt.Fatalf("Put: %v", err)
		}
	})

	mt.Run("put error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "document failed validation",
		}))
		repo := NewGeocodeCacheRepository(mt.DB)

		if err := repo.Put(context.Background(), "k", "search", nil, time.Hour); err == nil {
			mt.Fatal("Put returned no error for a write error")
		}
	})
}
