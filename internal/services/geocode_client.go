package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
	"routeplanner/pkg/logger"
	"routeplanner/pkg/maps"
)

const (
	DefaultMinQueryLength  = 3
	DefaultSuggestionLimit = 5
	DefaultGeocodeTimeout  = 10 * time.Second
)

type GeocodeClient interface {
	// Searchable reports whether ForwardSearch would issue a request for query.
	// Length is counted in runes as typed, surrounding spaces included.
	Searchable(query string) bool
	// ForwardSearch returns up to the configured limit of candidates. issued is
	// false when the query is too short and no request was made.
	ForwardSearch(ctx context.Context, query string) (candidates []models.PlaceCandidate, issued bool, err error)
	ReverseLookup(ctx context.Context, coords models.Coordinates) (models.PlaceCandidate, error)
}

type GeocodeClientConfig struct {
	MinQueryLength int
	Limit          int
	CacheTTL       time.Duration
	ProviderName   string
	// Timeout bounds one shared provider call, independent of any caller's ctx.
	Timeout time.Duration
}

type geocodeClient struct {
	geocoder maps.Geocoder
	cache    interfaces.GeocodeCacheRepository
	config   GeocodeClientConfig
	logger   *logger.Logger
	group    singleflight.Group
}

// NewGeocodeClient builds a client over geocoder. cache may be nil.
func NewGeocodeClient(
	geocoder maps.Geocoder,
	cache interfaces.GeocodeCacheRepository,
	config GeocodeClientConfig,
	logger *logger.Logger,
) GeocodeClient {
	if config.MinQueryLength <= 0 {
		config.MinQueryLength = DefaultMinQueryLength
	}
	if config.Limit <= 0 {
		config.Limit = DefaultSuggestionLimit
	}
	if config.ProviderName == "" {
		config.ProviderName = "geocoder"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultGeocodeTimeout
	}

	return &geocodeClient{
		geocoder: geocoder,
		cache:    cache,
		config:   config,
		logger:   logger.WithField("component", "geocode_client"),
	}
}

func (g *geocodeClient) Searchable(query string) bool {
	return utf8.RuneCountInString(query) >= g.config.MinQueryLength
}

func (g *geocodeClient) ForwardSearch(ctx context.Context, query string) ([]models.PlaceCandidate, bool, error) {
	if !g.Searchable(query) {
		return nil, false, nil
	}

	query = strings.TrimSpace(query)
	key := fmt.Sprintf("%s:%d:%s", interfaces.GeocodeKindSearch, g.config.Limit, normalizeQuery(query))

	candidates, err := g.cached(ctx, key, interfaces.GeocodeKindSearch, func(ctx context.Context) ([]models.PlaceCandidate, error) {
		resp, err := g.geocoder.SearchPlaces(ctx, &maps.PlaceSearchRequest{
			Query: query,
			Limit: g.config.Limit,
		})
		if err != nil {
			return nil, err
		}

		out := make([]models.PlaceCandidate, 0, len(resp.Results))
		for _, result := range resp.Results {
			if len(out) == g.config.Limit {
				break
			}
			name := result.Address
			if name == "" {
				name = result.Name
			}
			out = append(out, models.PlaceCandidate{
				DisplayName: name,
				Coordinates: models.Coordinates{Lat: result.Location.Latitude, Lon: result.Location.Longitude},
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, true, fmt.Errorf("%w: forward search: %v", ErrGeocodeUnavailable, err)
	}

	return candidates, true, nil
}

// ReverseLookup names the place at coords. The returned candidate keeps the
// queried coordinates rather than the provider's snapped location.
func (g *geocodeClient) ReverseLookup(ctx context.Context, coords models.Coordinates) (models.PlaceCandidate, error) {
	key := fmt.Sprintf("%s:%.5f,%.5f", interfaces.GeocodeKindReverse, coords.Lat, coords.Lon)

	candidates, err := g.cached(ctx, key, interfaces.GeocodeKindReverse, func(ctx context.Context) ([]models.PlaceCandidate, error) {
		resp, err := g.geocoder.ReverseGeocode(ctx, coords.Lat, coords.Lon)
		if err != nil {
			return nil, err
		}
		if len(resp.Results) == 0 || resp.Results[0].Address == "" {
			return nil, fmt.Errorf("no place found at %s", coords)
		}
		return []models.PlaceCandidate{{DisplayName: resp.Results[0].Address, Coordinates: coords}}, nil
	})
	if err != nil {
		return models.PlaceCandidate{}, fmt.Errorf("%w: reverse lookup: %v", ErrGeocodeUnavailable, err)
	}

	candidate := candidates[0]
	candidate.Coordinates = coords
	return candidate, nil
}

// cached is a read-through wrapper: cache hit, else one shared provider call
// per key, then a best-effort write back. A caller whose ctx ends stops
// waiting without cancelling the call for the others.
func (g *geocodeClient) cached(
	ctx context.Context,
	key, kind string,
	fetch func(context.Context) ([]models.PlaceCandidate, error),
) ([]models.PlaceCandidate, error) {
	if g.cache != nil {
		candidates, found, err := g.cache.Get(ctx, key)
		if err != nil {
			g.logger.WithError(err).WithField("key", key).Warn("Geocode cache read failed")
		} else if found {
			return candidates, nil
		}
	}

	ch := g.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.config.Timeout)
		defer cancel()

		start := time.Now()
		candidates, err := fetch(callCtx)
		g.logger.LogProviderCall(kind, g.config.ProviderName, time.Since(start), err)
		if err != nil {
			return nil, err
		}

		if g.cache != nil && g.config.CacheTTL > 0 {
			if err := g.cache.Put(callCtx, key, kind, candidates, g.config.CacheTTL); err != nil {
				g.logger.WithError(err).WithField("key", key).Warn("Geocode cache write failed")
			}
		}
		return candidates, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	candidates := res.Val.([]models.PlaceCandidate)
	out := make([]models.PlaceCandidate, len(candidates))
	copy(out, candidates)
	return out, nil
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
