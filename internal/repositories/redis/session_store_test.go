package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
	"routeplanner/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, cache.NewRedisCacheFromClient(client, "")
}

func TestSessionStoreRoundTrip(t *testing.T) {
	mr, c := newTestCache(t)
	store := NewSessionStore(c)
	ctx := context.Background()

	coords := models.Coordinates{Lat: 19.076, Lon: 72.8777}
	start := models.NewEndpoint(models.RoleStart)
	start.Text = "Mumbai"
	start.Coordinates = &coords

	err := store.Save(ctx, &models.PersistedSession{
		UserID:      "alice",
		Start:       start,
		End:         models.NewEndpoint(models.RoleEnd),
		ActiveField: models.ActiveFieldEnd,
	}, time.Hour)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !mr.Exists("planner:session:alice") {
		t.Fatal("session key not written")
	}
	if ttl := mr.TTL("planner:session:alice"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}

	got, err := store.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Start.Text != "Mumbai" || got.Start.Coordinates == nil || *got.Start.Coordinates != coords {
		t.Fatalf("start = %+v", got.Start)
	}
	if got.ActiveField != models.ActiveFieldEnd {
		t.Fatalf("active field = %q", got.ActiveField)
	}
}

func TestSessionStoreMissingAndExpired(t *testing.T) {
	mr, c := newTestCache(t)
	store := NewSessionStore(c)
	ctx := context.Background()

	if _, err := store.Load(ctx, "nobody"); !errors.Is(err, interfaces.ErrSessionNotStored) {
		t.Fatalf("err = %v, want ErrSessionNotStored", err)
	}

	if err := store.Save(ctx, &models.PersistedSession{UserID: "bob"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Load(ctx, "bob"); !errors.Is(err, interfaces.ErrSessionNotStored) {
		t.Fatalf("expired: err = %v, want ErrSessionNotStored", err)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	mr, c := newTestCache(t)
	store := NewSessionStore(c)
	ctx := context.Background()

	if err := store.Save(ctx, &models.PersistedSession{UserID: "carol"}, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "carol"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists("planner:session:carol") {
		t.Fatal("session key survived Delete")
	}
	if err := store.Save(ctx, &models.PersistedSession{}, time.Hour); err == nil {
		t.Fatal("Save without user id succeeded")
	}
}

func TestGeocodeCacheMissThenHit(t *testing.T) {
	_, c := newTestCache(t)
	repo := NewGeocodeCacheRepository(c)
	ctx := context.Background()

	if _, found, err := repo.Get(ctx, "search:5:powai"); err != nil || found {
		t.Fatalf("Get on empty cache = found %v, err %v", found, err)
	}

	want := []models.PlaceCandidate{{DisplayName: "Powai, Mumbai", Coordinates: models.Coordinates{Lat: 19.1176, Lon: 72.906}}}
	if err := repo.Put(ctx, "search:5:powai", interfaces.GeocodeKindSearch, want, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, found, err := repo.Get(ctx, "search:5:powai")
	if err != nil || !found {
		t.Fatalf("Get = found %v, err %v", found, err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("candidates = %+v", got)
	}
}
