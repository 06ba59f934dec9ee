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

// RouteOrchestrator owns the single live route and the click marker of a
// session. Like the resolver it shares the session lock and releases it
// while the router is working.
type RouteOrchestrator struct {
	mu           sync.Locker
	router       maps.Router
	surface      MapSurface
	loading      *LoadingState
	providerName string
	logger       *logger.Logger

	seq         uint64
	result      *models.RouteResult
	line        []models.Coordinates
	clickMarker models.MarkerHandle
	clickPoint  *models.Coordinates
}

func NewRouteOrchestrator(
	mu sync.Locker,
	router maps.Router,
	surface MapSurface,
	loading *LoadingState,
	providerName string,
	logger *logger.Logger,
) *RouteOrchestrator {
	return &RouteOrchestrator{
		mu:           mu,
		router:       router,
		surface:      surface,
		loading:      loading,
		providerName: providerName,
		logger:       logger.WithField("component", "route_orchestrator"),
	}
}

// ComputeRoute draws the driving route between start and end, replacing any
// route already on the map.
func (o *RouteOrchestrator) ComputeRoute(ctx context.Context, start, end *models.Coordinates) (models.RouteResult, error) {
	if start == nil || end == nil {
		return models.RouteResult{}, newPromptError(models.PromptIncompleteEndpoints, MessageIncompleteEndpoints, ErrIncompleteEndpoints)
	}
	from, to := *start, *end

	o.mu.Lock()
	o.retractRouteLocked()
	o.seq++
	seq := o.seq
	done := o.loading.Begin()
	o.mu.Unlock()
	defer done()

	began := time.Now()
	resp, err := o.router.GetDirections(ctx, &maps.DirectionsRequest{
		Origin:       maps.Location{Latitude: from.Lat, Longitude: from.Lon},
		Destination:  maps.Location{Latitude: to.Lat, Longitude: to.Lon},
		Mode:         "driving",
		Alternatives: false,
	})
	if err == nil && (resp == nil || len(resp.Routes) == 0) {
		err = maps.ErrNoRoute
	}
	o.logger.LogProviderCall("route", o.providerName, time.Since(began), err)
	done()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.seq != seq {
		o.logger.WithField("seq", seq).Debug("Discarding stale route")
		return models.RouteResult{}, errSuperseded
	}

	if err != nil {
		if !errors.Is(err, maps.ErrNoRoute) {
			o.logger.WithError(err).Error("Routing engine failed")
		}
		return models.RouteResult{}, newPromptError(models.PromptRouteNotFound, MessageRouteNotFound, fmt.Errorf("%w: %v", ErrRouteNotFound, err))
	}

	route := resp.Routes[0]
	line := make([]models.Coordinates, 0, len(route.Geometry))
	for _, p := range route.Geometry {
		line = append(line, models.Coordinates{Lat: p.Latitude, Lon: p.Longitude})
	}
	if len(line) == 0 {
		line = []models.Coordinates{from, to}
	}

	handle := o.surface.AddOverlay(models.RouteOverlay{
		Waypoints: [2]models.Coordinates{from, to},
		Line:      line,
	})

	result := models.RouteResult{
		DistanceMeters:  route.Distance.Value,
		DurationSeconds: route.Duration.Value,
		Geometry:        handle,
	}
	o.result = &result
	o.line = line

	return result, nil
}

// PlaceClickMarker moves the transient click marker to at.
func (o *RouteOrchestrator) PlaceClickMarker(at models.Coordinates) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.placeClickMarkerLocked(at)
}

func (o *RouteOrchestrator) placeClickMarkerLocked(at models.Coordinates) {
	if o.clickMarker != "" {
		o.surface.RemoveMarker(o.clickMarker)
	}
	o.clickMarker = o.surface.AddMarker(at)
	o.clickPoint = &at
}

// ClearRoute retracts the overlay and the click marker. Calling it again is a no-op.
func (o *RouteOrchestrator) ClearRoute() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearLocked()
}

func (o *RouteOrchestrator) clearLocked() {
	o.retractRouteLocked()
	if o.clickMarker != "" {
		o.surface.RemoveMarker(o.clickMarker)
		o.clickMarker = ""
	}
	o.clickPoint = nil
	// A route still being computed must not reappear after a clear.
	o.seq++
}

func (o *RouteOrchestrator) retractRouteLocked() {
	if o.result != nil {
		o.surface.RemoveOverlay(o.result.Geometry)
	}
	o.result = nil
	o.line = nil
}

// Result returns the live route, if any.
func (o *RouteOrchestrator) Result() (models.RouteResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return models.RouteResult{}, false
	}
	return *o.result, true
}

func (o *RouteOrchestrator) fillSnapshotLocked(s *models.Snapshot) {
	if o.result != nil {
		details := o.result.Details()
		s.Route = &details
		s.RouteGeometry = append([]models.Coordinates(nil), o.line...)
	}
	if o.clickPoint != nil {
		p := *o.clickPoint
		s.ClickMarker = &p
	}
}
