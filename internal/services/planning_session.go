package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"routeplanner/internal/models"
	"routeplanner/pkg/logger"
	"routeplanner/pkg/maps"
)

const (
	EventSnapshot = "snapshot"
	EventLayer    = "layer"
	EventLoading  = "loading"
)

// SessionEvent is what a session tells its observers. Exactly one of the
// payload fields is set, matching Type.
type SessionEvent struct {
	Type     string             `json:"type"`
	Snapshot *models.Snapshot   `json:"snapshot,omitempty"`
	Layer    *models.LayerEvent `json:"layer,omitempty"`
	Loading  *bool              `json:"loading,omitempty"`
}

type SessionDeps struct {
	Geocoder   GeocodeClient
	Router     maps.Router
	RouterName string
	Resolver   ResolverConfig
	Logger     *logger.Logger
}

// PlanningSession is the state of one user's planner. Mutations are
// serialized by mu, which is released while providers are called so the
// session keeps accepting events.
type PlanningSession struct {
	userID string
	logger *logger.Logger

	mu           sync.Mutex
	loading      *LoadingState
	active       *ActiveFieldController
	surface      *LayerSurface
	resolver     *LocationResolver
	orchestrator *RouteOrchestrator

	prompt       *models.Prompt
	version      int64
	updatedAt    time.Time
	lastActivity time.Time

	listenersMu sync.RWMutex
	listeners   []func(SessionEvent)

	// snapshotMu orders snapshot delivery; delivered is the newest version
	// observers have seen.
	snapshotMu sync.Mutex
	delivered  int64
}

func NewPlanningSession(userID string, deps SessionDeps) *PlanningSession {
	log := deps.Logger.WithUserID(userID)

	s := &PlanningSession{
		userID:       userID,
		logger:       log,
		loading:      NewLoadingState(),
		active:       NewActiveFieldController(),
		updatedAt:    time.Now().UTC(),
		lastActivity: time.Now(),
	}

	s.surface = NewLayerSurface(func(ev models.LayerEvent) {
		s.dispatch(SessionEvent{Type: EventLayer, Layer: &ev})
	})
	s.loading.OnChange(func(busy bool) {
		s.dispatch(SessionEvent{Type: EventLoading, Loading: &busy})
	})
	s.resolver = NewLocationResolver(&s.mu, deps.Geocoder, s.active, s.loading, deps.Resolver, log)
	s.orchestrator = NewRouteOrchestrator(&s.mu, deps.Router, s.surface, s.loading, deps.RouterName, log)

	return s
}

func (s *PlanningSession) UserID() string {
	return s.userID
}

// OnChange registers an observer. Observers may be called with the session
// locked and must not call back into it.
func (s *PlanningSession) OnChange(fn func(SessionEvent)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *PlanningSession) detach() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = nil
}

func (s *PlanningSession) dispatch(ev SessionEvent) {
	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (s *PlanningSession) EditText(ctx context.Context, role models.Role, text string) (models.Snapshot, error) {
	s.dismissPrompt()
	return s.finish(s.resolver.EditText(ctx, role, text))
}

func (s *PlanningSession) SelectSuggestion(role models.Role, index int) (models.Snapshot, error) {
	s.dismissPrompt()
	_, err := s.resolver.SelectSuggestion(role, index)
	return s.finish(err)
}

func (s *PlanningSession) UseCurrentLocation(ctx context.Context, role models.Role, provider GeolocationProvider) (models.Snapshot, error) {
	s.dismissPrompt()
	return s.finish(s.resolver.ResolveCurrentLocation(ctx, role, provider))
}

// SelectFromMap makes role the target of subsequent map clicks.
func (s *PlanningSession) SelectFromMap(role models.Role) models.Snapshot {
	s.dismissPrompt()
	s.active.Select(role)
	snap, _ := s.finish(nil)
	return snap
}

// ClickMap resolves a clicked point into the active endpoint. With no
// active endpoint nothing changes and a NO_ACTIVE_FIELD prompt is raised.
func (s *PlanningSession) ClickMap(ctx context.Context, point models.Coordinates) (models.Snapshot, error) {
	if err := point.Validate(); err != nil {
		return s.Snapshot(), fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}

	s.mu.Lock()
	s.prompt = nil
	role, err := s.active.Target()
	if err != nil {
		s.mu.Unlock()
		return s.finish(err)
	}
	s.orchestrator.placeClickMarkerLocked(point)
	s.mu.Unlock()

	return s.finish(s.resolver.ResolveMapClick(ctx, role, point))
}

func (s *PlanningSession) FindRoute(ctx context.Context) (models.Snapshot, error) {
	s.mu.Lock()
	s.prompt = nil
	start, end := s.resolver.coordinatesLocked()
	s.mu.Unlock()

	_, err := s.orchestrator.ComputeRoute(ctx, start, end)
	return s.finish(err)
}

// ClearEndpoint empties one endpoint. A drawn route stays until the next FindRoute.
func (s *PlanningSession) ClearEndpoint(role models.Role) models.Snapshot {
	s.dismissPrompt()
	s.resolver.ClearEndpoint(role)
	snap, _ := s.finish(nil)
	return snap
}

// Clear resets both endpoints, the active field, the route and the click
// marker. It is idempotent.
func (s *PlanningSession) Clear() models.Snapshot {
	s.mu.Lock()
	s.resolver.resetLocked()
	s.orchestrator.clearLocked()
	s.active.Reset()
	s.prompt = nil
	s.mu.Unlock()

	snap, _ := s.finish(nil)
	return snap
}

// InvalidateSize asks connected map widgets to recompute their viewport.
func (s *PlanningSession) InvalidateSize() {
	s.surface.InvalidateSize()
}

// Publish sends the current snapshot to observers without changing it.
func (s *PlanningSession) Publish() {
	s.dispatchSnapshot(s.Snapshot())
}

func (s *PlanningSession) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Restore loads endpoints and the active field from a persisted session.
func (s *PlanningSession) Restore(p *models.PersistedSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resolver.restoreLocked(p.Start, p.End)
	s.active.restore(p.ActiveField)
	if !p.UpdatedAt.IsZero() {
		s.updatedAt = p.UpdatedAt
	}
}

func (s *PlanningSession) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *PlanningSession) dismissPrompt() {
	s.mu.Lock()
	s.prompt = nil
	s.mu.Unlock()
}

// finish records the outcome of an operation, publishes the new snapshot
// and hands it back together with the error the caller should see.
func (s *PlanningSession) finish(err error) (models.Snapshot, error) {
	if errors.Is(err, errSuperseded) {
		err = nil
	}

	s.mu.Lock()
	if pe, ok := AsPrompt(err); ok {
		prompt := pe.Prompt()
		s.prompt = &prompt
	}
	s.version++
	now := time.Now()
	s.updatedAt = now.UTC()
	s.lastActivity = now
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.dispatchSnapshot(snap)
	return snap, err
}

// dispatchSnapshot delivers snapshots to observers in version order. Two
// operations can build snapshots in one order and reach here in the other;
// the older one is dropped so the store and the browser keep the newer state.
func (s *PlanningSession) dispatchSnapshot(snap models.Snapshot) {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()

	if snap.Version < s.delivered {
		s.logger.WithField("version", snap.Version).Debug("Dropping stale snapshot")
		return
	}
	s.delivered = snap.Version
	s.dispatch(SessionEvent{Type: EventSnapshot, Snapshot: &snap})
}

func (s *PlanningSession) snapshotLocked() models.Snapshot {
	start, end := s.resolver.endpointsLocked()

	snap := models.Snapshot{
		UserID:      s.userID,
		Start:       start,
		End:         end,
		ActiveField: s.active.Current(),
		Banner:      s.active.Banner(),
		Loading:     s.loading.Busy(),
		Version:     s.version,
		UpdatedAt:   s.updatedAt,
	}
	if s.prompt != nil {
		p := *s.prompt
		snap.Prompt = &p
	}
	s.orchestrator.fillSnapshotLocked(&snap)

	return snap
}
