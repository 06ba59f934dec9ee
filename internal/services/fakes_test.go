package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
	"routeplanner/pkg/logger"
	"routeplanner/pkg/maps"
)

// fakeGeocoder answers from canned functions and records every call.
type fakeGeocoder struct {
	mu           sync.Mutex
	searchCalls  []string
	reverseCalls []maps.Location

	search  func(ctx context.Context, query string) (*maps.PlaceSearchResponse, error)
	reverse func(ctx context.Context, lat, lng float64) (*maps.GeocodeResponse, error)
}

func (f *fakeGeocoder) SearchPlaces(ctx context.Context, request *maps.PlaceSearchRequest) (*maps.PlaceSearchResponse, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, request.Query)
	fn := f.search
	f.mu.Unlock()

	if fn == nil {
		return &maps.PlaceSearchResponse{}, nil
	}
	return fn(ctx, request.Query)
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*maps.GeocodeResponse, error) {
	f.mu.Lock()
	f.reverseCalls = append(f.reverseCalls, maps.Location{Latitude: lat, Longitude: lng})
	fn := f.reverse
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("reverse not configured")
	}
	return fn(ctx, lat, lng)
}

func (f *fakeGeocoder) searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searchCalls...)
}

func (f *fakeGeocoder) reverses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reverseCalls)
}

func places(names ...string) *maps.PlaceSearchResponse {
	resp := &maps.PlaceSearchResponse{}
	for i, name := range names {
		resp.Results = append(resp.Results, maps.PlaceResult{
			Name:     name,
			Address:  name,
			Location: maps.Location{Latitude: 19 + float64(i)/100, Longitude: 72 + float64(i)/100},
		})
	}
	return resp
}

func reverseNamed(name string) func(context.Context, float64, float64) (*maps.GeocodeResponse, error) {
	return func(_ context.Context, lat, lng float64) (*maps.GeocodeResponse, error) {
		return &maps.GeocodeResponse{Results: []maps.GeocodeResult{{
			Address:     name,
			Coordinates: maps.Location{Latitude: lat, Longitude: lng},
		}}}, nil
	}
}

func reverseFailing(context.Context, float64, float64) (*maps.GeocodeResponse, error) {
	return nil, errors.New("nominatim: connection refused")
}

// fakeRouter mimics a routing engine with a fixed outcome.
type fakeRouter struct {
	mu       sync.Mutex
	calls    []*maps.DirectionsRequest
	distance float64
	duration float64
	err      error
	gate     chan struct{}
	started  chan struct{}
}

func (f *fakeRouter) GetDirections(ctx context.Context, request *maps.DirectionsRequest) (*maps.DirectionsResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, request)
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	if f.err != nil {
		return nil, f.err
	}
	return &maps.DirectionsResponse{Routes: []maps.Route{{
		Distance: maps.Distance{Value: f.distance},
		Duration: maps.Duration{Value: f.duration},
		Geometry: []maps.Location{
			{Latitude: request.Origin.Latitude, Longitude: request.Origin.Longitude},
			{Latitude: request.Destination.Latitude, Longitude: request.Destination.Longitude},
		},
	}}}, nil
}

func (f *fakeRouter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memoryStore is a map-backed SessionStore.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.PersistedSession
	saves    int
	deletes  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]models.PersistedSession)}
}

func (m *memoryStore) Save(_ context.Context, session *models.PersistedSession, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = *session
	m.saves++
	return nil
}

func (m *memoryStore) Load(_ context.Context, userID string) (*models.PersistedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, interfaces.ErrSessionNotStored
	}
	return &s, nil
}

func (m *memoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	m.deletes++
	return nil
}

// recordingPublisher keeps every message sent to a user.
type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][]string
	closed   []string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{messages: make(map[string][]string)}
}

func (p *recordingPublisher) SendToUser(userID string, messageType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[userID] = append(p.messages[userID], messageType)
}

func (p *recordingPublisher) CloseUser(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, userID)
}

func (p *recordingPublisher) count(userID, messageType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.messages[userID] {
		if t == messageType {
			n++
		}
	}
	return n
}

func testDeps(geo maps.Geocoder, router maps.Router) SessionDeps {
	log := logger.NewNop()
	return SessionDeps{
		Geocoder:   NewGeocodeClient(geo, nil, GeocodeClientConfig{ProviderName: "fake"}, log),
		Router:     router,
		RouterName: "fake",
		Logger:     log,
	}
}

func newTestSession(geo maps.Geocoder, router maps.Router) *PlanningSession {
	return NewPlanningSession("user-1", testDeps(geo, router))
}

func coordsPtr(lat, lon float64) *models.Coordinates {
	return &models.Coordinates{Lat: lat, Lon: lon}
}
