package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"routeplanner/internal/models"
	"routeplanner/pkg/logger"
	"routeplanner/pkg/maps"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]models.PlaceCandidate
	getErr  error
	puts    int
}

func (c *fakeCache) Get(_ context.Context, key string) ([]models.PlaceCandidate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Put(_ context.Context, key, _ string, candidates []models.PlaceCandidate, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]models.PlaceCandidate)
	}
	c.entries[key] = candidates
	c.puts++
	return nil
}

func TestForwardSearchQueryLengthBoundary(t *testing.T) {
	geo := &fakeGeocoder{search: func(context.Context, string) (*maps.PlaceSearchResponse, error) {
		return places("Mumbai, Maharashtra, India"), nil
	}}
	client := NewGeocodeClient(geo, nil, GeocodeClientConfig{}, logger.NewNop())

	tests := []struct {
		query  string
		issued bool
	}{
		{"mu", false},
		{"m ", false},
		{"  mu  ", true},
		{"mum", true},
		{"पुण", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			before := len(geo.searches())
			_, issued, err := client.ForwardSearch(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("ForwardSearch: %v", err)
			}
			if issued != tt.issued {
				t.Fatalf("issued = %v, want %v", issued, tt.issued)
			}
			calls := len(geo.searches()) - before
			if tt.issued && calls != 1 || !tt.issued && calls != 0 {
				t.Fatalf("provider calls = %d for %q", calls, tt.query)
			}
		})
	}
}

func TestForwardSearchCapsResults(t *testing.T) {
	geo := &fakeGeocoder{search: func(context.Context, string) (*maps.PlaceSearchResponse, error) {
		return places("a", "b", "c", "d", "e", "f", "g"), nil
	}}
	client := NewGeocodeClient(geo, nil, GeocodeClientConfig{}, logger.NewNop())

	got, _, err := client.ForwardSearch(context.Background(), "andheri")
	if err != nil {
		t.Fatalf("ForwardSearch: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("candidates = %d, want 5", len(got))
	}
	if got[0].DisplayName != "a" || got[0].Coordinates.Lat != 19 {
		t.Fatalf("first = %+v", got[0])
	}
}

func TestForwardSearchFailureIsGeocodeUnavailable(t *testing.T) {
	geo := &fakeGeocoder{search: func(context.Context, string) (*maps.PlaceSearchResponse, error) {
		return nil, errors.New("503 service unavailable")
	}}
	client := NewGeocodeClient(geo, nil, GeocodeClientConfig{}, logger.NewNop())

	_, issued, err := client.ForwardSearch(context.Background(), "bandra")
	if !issued {
		t.Fatal("issued = false for a searchable query")
	}
	if !errors.Is(err, ErrGeocodeUnavailable) {
		t.Fatalf("err = %v, want ErrGeocodeUnavailable", err)
	}
}

func TestGeocodeCacheReadThrough(t *testing.T) {
	geo := &fakeGeocoder{search: func(context.Context, string) (*maps.PlaceSearchResponse, error) {
		return places("Powai, Mumbai"), nil
	}}
	cache := &fakeCache{}
	client := NewGeocodeClient(geo, cache, GeocodeClientConfig{CacheTTL: time.Hour}, logger.NewNop())

	for _, q := range []string{"Powai", "  powai ", "POWAI"} {
		got, _, err := client.ForwardSearch(context.Background(), q)
		if err != nil {
			t.Fatalf("ForwardSearch(%q): %v", q, err)
		}
		if len(got) != 1 || got[0].DisplayName != "Powai, Mumbai" {
			t.Fatalf("ForwardSearch(%q) = %+v", q, got)
		}
	}

	if calls := len(geo.searches()); calls != 1 {
		t.Fatalf("provider calls = %d, want 1", calls)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.puts)
	}
}

func TestGeocodeCacheErrorsAreIgnored(t *testing.T) {
	geo := &fakeGeocoder{reverse: reverseNamed("Juhu Beach, Mumbai")}
	cache := &fakeCache{getErr: errors.New("mongo: server selection timeout")}
	client := NewGeocodeClient(geo, cache, GeocodeClientConfig{CacheTTL: time.Hour}, logger.NewNop())

	got, err := client.ReverseLookup(context.Background(), models.Coordinates{Lat: 19.0988, Lon: 72.8267})
	if err != nil {
		t.Fatalf("ReverseLookup: %v", err)
	}
	if got.DisplayName != "Juhu Beach, Mumbai" {
		t.Fatalf("display name = %q", got.DisplayName)
	}
	if geo.reverses() != 1 {
		t.Fatalf("provider calls = %d, want 1", geo.reverses())
	}
}

func TestReverseLookupEmptyResult(t *testing.T) {
	geo := &fakeGeocoder{reverse: func(context.Context, float64, float64) (*maps.GeocodeResponse, error) {
		return &maps.GeocodeResponse{}, nil
	}}
	client := NewGeocodeClient(geo, nil, GeocodeClientConfig{}, logger.NewNop())

	_, err := client.ReverseLookup(context.Background(), models.Coordinates{Lat: 0, Lon: -140})
	if !errors.Is(err, ErrGeocodeUnavailable) {
		t.Fatalf("err = %v, want ErrGeocodeUnavailable", err)
	}
}

func TestReverseLookupKeepsQueriedPoint(t *testing.T) {
	geo := &fakeGeocoder{reverse: func(context.Context, float64, float64) (*maps.GeocodeResponse, error) {
		return &maps.GeocodeResponse{Results: []maps.GeocodeResult{{
			Address:     "Marine Drive, Mumbai",
			Coordinates: maps.Location{Latitude: 18.9440, Longitude: 72.8230},
		}}}, nil
	}}
	client := NewGeocodeClient(geo, nil, GeocodeClientConfig{}, logger.NewNop())

	point := models.Coordinates{Lat: 18.9432, Lon: 72.8236}
	got, err := client.ReverseLookup(context.Background(), point)
	if err != nil {
		t.Fatalf("ReverseLookup: %v", err)
	}
	if got.Coordinates != point {
		t.Fatalf("coordinates = %+v, want %+v", got.Coordinates, point)
	}
}

func TestForwardSearchSurvivesAnotherCallerCancelling(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	geo := &fakeGeocoder{search: func(ctx context.Context, _ string) (*maps.PlaceSearchResponse, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return places("Mumbai, Maharashtra, India"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	client := NewGeocodeClient(geo, nil, GeocodeClientConfig{}, logger.NewNop())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := client.ForwardSearch(ctxA, "Mumbai")
		errA <- err
	}()
	<-started

	type result struct {
		candidates []models.PlaceCandidate
		err        error
	}
	resB := make(chan result, 1)
	go func() {
		got, _, err := client.ForwardSearch(context.Background(), "mumbai")
		resB <- result{got, err}
	}()

	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	cancelA()

	select {
	case err := <-errA:
		if err == nil {
			t.Fatal("cancelled caller got no error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller still waiting on the shared call")
	}

	close(release)
	b := <-resB
	if b.err != nil {
		t.Fatalf("second caller: %v", b.err)
	}
	if len(b.candidates) != 1 {
		t.Fatalf("second caller candidates = %+v, want 1", b.candidates)
	}
	if calls := len(geo.searches()); calls != 1 {
		t.Fatalf("provider calls = %d, want 1", calls)
	}
}
