package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"routeplanner/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	payload []byte
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.payload
	return nil
}

type fakeDB struct {
	row     fakeRow
	tag     pgconn.CommandTag
	execErr error

	queries []string
	args    [][]any
}

func (d *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.queries = append(d.queries, sql)
	d.args = append(d.args, args)
	return d.row
}

func (d *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.queries = append(d.queries, sql)
	d.args = append(d.args, args)
	return d.tag, d.execErr
}

func TestGeocodeCacheGetHit(t *testing.T) {
	payload, _ := json.Marshal([]models.PlaceCandidate{
		{DisplayName: "Powai, Mumbai", Coordinates: models.Coordinates{Lat: 19.1176, Lon: 72.906}},
	})
	db := &fakeDB{row: fakeRow{payload: payload}}
	repo := NewGeocodeCacheRepository(db)

	got, found, err := repo.Get(context.Background(), "search:5:powai")
	if err != nil || !found {
		t.Fatalf("Get = found %v, err %v", found, err)
	}
	if len(got) != 1 || got[0].DisplayName != "Powai, Mumbai" || got[0].Coordinates.Lat != 19.1176 {
		t.Fatalf("candidates = %+v", got)
	}
	if db.args[0][0] != "search:5:powai" {
		t.Fatalf("queried key = %v", db.args[0][0])
	}
	if !strings.Contains(db.queries[0], "expires_at > now()") {
		t.Fatalf("query does not skip expired rows: %s", db.queries[0])
	}
}

func TestGeocodeCacheGetMiss(t *testing.T) {
	repo := NewGeocodeCacheRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})

	got, found, err := repo.Get(context.Background(), "reverse:19.117600,72.906000")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found || got != nil {
		t.Fatalf("miss returned found=%v candidates=%+v", found, got)
	}
}

func TestGeocodeCacheGetErrors(t *testing.T) {
	tests := []struct {
		name string
		row  fakeRow
	}{
		{"query", fakeRow{err: errors.New("connection reset")}},
		{"payload", fakeRow{payload: []byte("{not json")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewGeocodeCacheRepository(&fakeDB{row: tt.row})
			if _, found, err := repo.Get(context.Background(), "k"); err == nil || found {
				t.Fatalf("Get = found %v, err %v", found, err)
			}
		})
	}
}

func TestGeocodeCachePutEncodesPayload(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	repo := NewGeocodeCacheRepository(db)

	before := time.Now()
	if err := repo.Put(context.Background(), "search:5:nowhere", "search", nil, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	args := db.args[0]
	if args[0] != "search:5:nowhere" || args[1] != "search" {
		t.Fatalf("key/kind = %v/%v", args[0], args[1])
	}
	if payload := string(args[2].([]byte)); payload != "[]" {
		t.Fatalf("payload = %s, want []", payload)
	}
	expires := args[3].(time.Time)
	if expires.Before(before.Add(time.Hour)) || expires.After(time.Now().Add(time.Hour)) {
		t.Fatalf("expires_at = %v, want about an hour from now", expires)
	}
}

func TestGeocodeCachePutError(t *testing.T) {
	repo := NewGeocodeCacheRepository(&fakeDB{execErr: errors.New("relation does not exist")})

	err := repo.Put(context.Background(), "search:5:powai", "search", []models.PlaceCandidate{}, time.Minute)
	if err == nil || !strings.Contains(err.Error(), "search:5:powai") {
		t.Fatalf("Put err = %v", err)
	}
}

func TestGeocodeCachePurgeExpired(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 3")}
	repo := NewGeocodeCacheRepository(db)

	n, err := repo.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("purged = %d, want 3", n)
	}
	if !strings.HasPrefix(db.queries[0], "DELETE FROM geocode_cache") {
		t.Fatalf("query = %s", db.queries[0])
	}
}

func TestGeocodeCacheWithoutDatabase(t *testing.T) {
	repo := NewGeocodeCacheRepository(nil)

	if _, _, err := repo.Get(context.Background(), "k"); err == nil {
		t.Fatal("Get without a database returned no error")
	}
	if err := repo.Put(context.Background(), "k", "search", nil, time.Minute); err == nil {
		t.Fatal("Put without a database returned no error")
	}
	if _, err := repo.PurgeExpired(context.Background()); err == nil {
		t.Fatal("PurgeExpired without a database returned no error")
	}
}
