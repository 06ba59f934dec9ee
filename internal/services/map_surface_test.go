package services

import (
	"testing"

	"routeplanner/internal/models"
)

func TestLayerSurfaceOverlayEvents(t *testing.T) {
	var events []models.LayerEvent
	surface := NewLayerSurface(func(e models.LayerEvent) { events = append(events, e) })

	from := models.Coordinates{Lat: 19.0760, Lon: 72.8777}
	to := models.Coordinates{Lat: 19.2183, Lon: 72.9781}
	handle := surface.AddOverlay(models.RouteOverlay{
		Waypoints: [2]models.Coordinates{from, to},
		Line:      []models.Coordinates{from, to},
	})

	if surface.Overlays() != 1 || len(events) != 1 {
		t.Fatalf("overlays = %d, events = %d", surface.Overlays(), len(events))
	}
	added := events[0]
	if added.Type != models.LayerOverlayAdded || added.Handle != string(handle) {
		t.Fatalf("event = %+v", added)
	}
	if added.Polyline == "" || added.Bounds == nil {
		t.Fatalf("route overlay without polyline or bounds: %+v", added)
	}
	if added.Bounds.Northeast.Latitude != to.Lat || added.Bounds.Southwest.Longitude != from.Lon {
		t.Fatalf("bounds = %+v", added.Bounds)
	}

	surface.RemoveOverlay(handle)
	surface.RemoveOverlay(handle)
	if surface.Overlays() != 0 || len(events) != 2 || events[1].Type != models.LayerOverlayRemoved {
		t.Fatalf("after remove: overlays = %d, events = %+v", surface.Overlays(), events)
	}
}
