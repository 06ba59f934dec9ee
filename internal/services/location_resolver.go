package services

import (
	"context"
	"fmt"
	"sync"

	"routeplanner/internal/models"
	"routeplanner/pkg/logger"
)

type ResolverConfig struct {
	// ClearCoordinatesOnEdit drops an endpoint's coordinates as soon as its text changes.
	ClearCoordinatesOnEdit bool
}

type endpointState struct {
	endpoint models.Endpoint
	seq      uint64
}

// LocationResolver owns the start and end endpoints. All of its state is
// guarded by the session lock, which it releases around provider calls.
// Every request is stamped with the field's sequence number and its
// completion is dropped if a newer request for that field was issued.
type LocationResolver struct {
	mu       sync.Locker
	geocoder GeocodeClient
	active   *ActiveFieldController
	loading  *LoadingState
	config   ResolverConfig
	logger   *logger.Logger

	start endpointState
	end   endpointState
}

func NewLocationResolver(
	mu sync.Locker,
	geocoder GeocodeClient,
	active *ActiveFieldController,
	loading *LoadingState,
	config ResolverConfig,
	logger *logger.Logger,
) *LocationResolver {
	r := &LocationResolver{
		mu:       mu,
		geocoder: geocoder,
		active:   active,
		loading:  loading,
		config:   config,
		logger:   logger.WithField("component", "location_resolver"),
	}
	r.resetLocked()
	return r
}

func (r *LocationResolver) state(role models.Role) *endpointState {
	if role == models.RoleEnd {
		return &r.end
	}
	return &r.start
}

// issueLocked bumps the field's sequence number and returns it.
func (r *LocationResolver) issueLocked(role models.Role) uint64 {
	st := r.state(role)
	st.seq++
	return st.seq
}

func (r *LocationResolver) staleLocked(role models.Role, seq uint64) bool {
	if r.state(role).seq != seq {
		r.logger.WithFields(map[string]interface{}{
			"role":    role,
			"seq":     seq,
			"current": r.state(role).seq,
		}).Debug("Discarding stale completion")
		return true
	}
	return false
}

// EditText records what the user typed, targets the field for map clicks and
// refreshes its suggestions when the query is long enough.
func (r *LocationResolver) EditText(ctx context.Context, role models.Role, text string) error {
	r.mu.Lock()
	st := r.state(role)
	st.endpoint.Text = text
	if r.config.ClearCoordinatesOnEdit {
		st.endpoint.Coordinates = nil
	}
	r.active.Select(role)

	if !r.geocoder.Searchable(text) {
		r.mu.Unlock()
		return nil
	}

	seq := r.issueLocked(role)
	done := r.loading.Begin()
	r.mu.Unlock()

	candidates, _, err := r.geocoder.ForwardSearch(ctx, text)
	done()
	if err != nil {
		r.logger.WithError(err).WithField("role", role).Warn("Forward search failed")
		candidates = []models.PlaceCandidate{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.staleLocked(role, seq) {
		return errSuperseded
	}
	r.state(role).endpoint.Suggestions = candidates
	return nil
}

// SelectSuggestion resolves the endpoint to its index-th suggestion.
func (r *LocationResolver) SelectSuggestion(role models.Role, index int) (models.PlaceCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state(role)
	if index < 0 || index >= len(st.endpoint.Suggestions) {
		return models.PlaceCandidate{}, fmt.Errorf("%w: %s suggestion %d of %d", ErrUnknownSuggestion, role, index, len(st.endpoint.Suggestions))
	}

	candidate := st.endpoint.Suggestions[index]
	coords := candidate.Coordinates
	st.endpoint.Text = candidate.DisplayName
	st.endpoint.Coordinates = &coords
	st.endpoint.Suggestions = []models.PlaceCandidate{}

	// A search still in flight must not bring the list back.
	r.issueLocked(role)

	return candidate, nil
}

// ResolveCurrentLocation fills the endpoint from the device position. A
// provider failure becomes a GEOLOCATION_UNAVAILABLE prompt; a failed
// reverse lookup leaves the endpoint untouched.
func (r *LocationResolver) ResolveCurrentLocation(ctx context.Context, role models.Role, provider GeolocationProvider) error {
	r.mu.Lock()
	seq := r.issueLocked(role)
	done := r.loading.Begin()
	r.mu.Unlock()
	defer done()

	position, err := provider.CurrentPosition(ctx)
	if err != nil {
		r.logger.WithError(err).WithField("role", role).Warn("Current position unavailable")
		return newPromptError(models.PromptGeolocationUnavailable, MessageGeolocationUnavailable, fmt.Errorf("%w: %w", ErrGeolocationUnavailable, err))
	}

	candidate, err := r.geocoder.ReverseLookup(ctx, position)
	done()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.staleLocked(role, seq) {
		return errSuperseded
	}
	if err != nil {
		r.logger.WithError(err).WithField("role", role).Warn("Reverse lookup of current position failed")
		return nil
	}

	st := r.state(role)
	st.endpoint.Text = candidate.DisplayName
	st.endpoint.Coordinates = &position
	return nil
}

// ResolveMapClick fills the endpoint from a clicked point. When the reverse
// lookup fails the point is kept and the text is left as it was.
func (r *LocationResolver) ResolveMapClick(ctx context.Context, role models.Role, point models.Coordinates) error {
	r.mu.Lock()
	seq := r.issueLocked(role)
	done := r.loading.Begin()
	r.mu.Unlock()

	candidate, err := r.geocoder.ReverseLookup(ctx, point)
	done()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.staleLocked(role, seq) {
		return errSuperseded
	}

	st := r.state(role)
	st.endpoint.Coordinates = &point
	if err != nil {
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"role":  role,
			"point": point.String(),
		}).Warn("Reverse lookup of map click failed")
		return nil
	}

	st.endpoint.Text = candidate.DisplayName
	return nil
}

// ClearEndpoint empties one endpoint and drops anything in flight for it.
func (r *LocationResolver) ClearEndpoint(role models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearEndpointLocked(role)
}

func (r *LocationResolver) clearEndpointLocked(role models.Role) {
	st := r.state(role)
	st.endpoint = models.NewEndpoint(role)
	st.seq++
}

// Endpoints returns copies of both endpoints.
func (r *LocationResolver) Endpoints() (start, end models.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpointsLocked()
}

func (r *LocationResolver) endpointsLocked() (start, end models.Endpoint) {
	return r.start.endpoint.Clone(), r.end.endpoint.Clone()
}

func (r *LocationResolver) coordinatesLocked() (start, end *models.Coordinates) {
	s, e := r.endpointsLocked()
	return s.Coordinates, e.Coordinates
}

// resetLocked clears both endpoints at once.
func (r *LocationResolver) resetLocked() {
	r.clearEndpointLocked(models.RoleStart)
	r.clearEndpointLocked(models.RoleEnd)
}

func (r *LocationResolver) restoreLocked(start, end models.Endpoint) {
	r.resetLocked()

	start.Role = models.RoleStart
	end.Role = models.RoleEnd
	r.start.endpoint = start.Clone()
	r.end.endpoint = end.Clone()
}
