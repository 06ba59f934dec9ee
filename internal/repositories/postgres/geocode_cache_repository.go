package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ interfaces.GeocodeCacheRepository = (*GeocodeCacheRepository)(nil)

// DB is the part of *pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// GeocodeCacheRepository keeps geocoding results in the geocode_cache table.
type GeocodeCacheRepository struct {
	db DB
}

func NewGeocodeCacheRepository(db DB) *GeocodeCacheRepository {
	return &GeocodeCacheRepository{db: db}
}

func (r *GeocodeCacheRepository) Get(ctx context.Context, key string) ([]models.PlaceCandidate, bool, error) {
	if r.db == nil {
		return nil, false, errors.New("geocode cache: no database")
	}

	var payload []byte
	err := r.db.QueryRow(ctx, `
	SELECT payload
	FROM geocode_cache
	WHERE cache_key = $1 AND expires_at > now();
	`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get geocode cache: query: %w", err)
	}

	candidates := []models.PlaceCandidate{}
	if err := json.Unmarshal(payload, &candidates); err != nil {
		return nil, false, fmt.Errorf("get geocode cache: decode payload: %w", err)
	}

	return candidates, true, nil
}

func (r *GeocodeCacheRepository) Put(ctx context.Context, key, kind string, candidates []models.PlaceCandidate, ttl time.Duration) error {
	if r.db == nil {
		return errors.New("geocode cache: no database")
	}
	if candidates == nil {
		candidates = []models.PlaceCandidate{}
	}

	payload, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("insert geocode cache: encode payload: %w", err)
	}

	_, err = r.db.Exec(ctx, `
	INSERT INTO geocode_cache (cache_key, kind, payload, expires_at, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (cache_key) DO UPDATE
	SET kind = EXCLUDED.kind,
		payload = EXCLUDED.payload,
		expires_at = EXCLUDED.expires_at,
		updated_at = now();
	`, key, kind, payload, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("insert geocode cache key=%q: %w", key, err)
	}

	return nil
}

// PurgeExpired deletes entries past their expiry and reports how many went.
func (r *GeocodeCacheRepository) PurgeExpired(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, errors.New("geocode cache: no database")
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM geocode_cache WHERE expires_at <= now();`)
	if err != nil {
		return 0, fmt.Errorf("purge geocode cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
