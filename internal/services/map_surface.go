package services

import (
	"sync"

	"github.com/google/uuid"

	"routeplanner/internal/models"
	"routeplanner/internal/utils"
	"routeplanner/pkg/maps"
)

// MapSurface is the drawing side of the map widget.
type MapSurface interface {
	AddMarker(at models.Coordinates) models.MarkerHandle
	RemoveMarker(handle models.MarkerHandle)
	AddOverlay(overlay models.RouteOverlay) models.OverlayHandle
	RemoveOverlay(handle models.OverlayHandle)
	InvalidateSize()
}

// LayerSurface keeps the live layers of one session on the server and
// reports every change as a layer event for the browser to replay.
type LayerSurface struct {
	mu       sync.Mutex
	markers  map[models.MarkerHandle]models.Coordinates
	overlays map[models.OverlayHandle]models.RouteOverlay
	emit     func(models.LayerEvent)
}

func NewLayerSurface(emit func(models.LayerEvent)) *LayerSurface {
	if emit == nil {
		emit = func(models.LayerEvent) {}
	}
	return &LayerSurface{
		markers:  make(map[models.MarkerHandle]models.Coordinates),
		overlays: make(map[models.OverlayHandle]models.RouteOverlay),
		emit:     emit,
	}
}

func (s *LayerSurface) AddMarker(at models.Coordinates) models.MarkerHandle {
	handle := models.MarkerHandle(uuid.NewString())

	s.mu.Lock()
	s.markers[handle] = at
	s.mu.Unlock()

	s.emit(models.LayerEvent{
		Type:   models.LayerMarkerAdded,
		Handle: string(handle),
		Kind:   "click",
		Points: []models.Coordinates{at},
	})
	return handle
}

func (s *LayerSurface) RemoveMarker(handle models.MarkerHandle) {
	s.mu.Lock()
	_, ok := s.markers[handle]
	delete(s.markers, handle)
	s.mu.Unlock()

	if ok {
		s.emit(models.LayerEvent{Type: models.LayerMarkerRemoved, Handle: string(handle)})
	}
}

func (s *LayerSurface) AddOverlay(overlay models.RouteOverlay) models.OverlayHandle {
	handle := models.OverlayHandle(uuid.NewString())

	s.mu.Lock()
	s.overlays[handle] = overlay
	s.mu.Unlock()

	points := make([]maps.Location, len(overlay.Line))
	for i, c := range overlay.Line {
		points[i] = maps.Location{Latitude: c.Lat, Longitude: c.Lon}
	}
	bounds := maps.BoundsOf(points)

	s.emit(models.LayerEvent{
		Type:     models.LayerOverlayAdded,
		Handle:   string(handle),
		Kind:     "route",
		Points:   overlay.Line,
		Polyline: utils.EncodePolyline(points),
		Bounds:   &bounds,
	})
	return handle
}

func (s *LayerSurface) RemoveOverlay(handle models.OverlayHandle) {
	s.mu.Lock()
	_, ok := s.overlays[handle]
	delete(s.overlays, handle)
	s.mu.Unlock()

	if ok {
		s.emit(models.LayerEvent{Type: models.LayerOverlayRemoved, Handle: string(handle)})
	}
}

func (s *LayerSurface) InvalidateSize() {
	s.emit(models.LayerEvent{Type: models.LayerInvalidateSize})
}

func (s *LayerSurface) Markers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

func (s *LayerSurface) Overlays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.overlays)
}
