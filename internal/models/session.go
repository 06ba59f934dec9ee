package models

import (
	"time"

	"routeplanner/pkg/maps"
)

const (
	PromptIncompleteEndpoints    = "INCOMPLETE_ENDPOINTS"
	PromptNoActiveField          = "NO_ACTIVE_FIELD"
	PromptRouteNotFound          = "ROUTE_NOT_FOUND"
	PromptGeolocationUnavailable = "GEOLOCATION_UNAVAILABLE"
)

// Prompt is a blocking message the user has to acknowledge.
type Prompt struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Snapshot is the serializable view of a planning session. The browser
// renders it and the session store persists it.
type Snapshot struct {
	UserID        string        `json:"user_id"`
	Start         Endpoint      `json:"start"`
	End           Endpoint      `json:"end"`
	ActiveField   ActiveField   `json:"active_field"`
	Banner        string        `json:"banner"`
	Route         *RouteDetails `json:"route,omitempty"`
	RouteGeometry []Coordinates `json:"route_geometry,omitempty"`
	ClickMarker   *Coordinates  `json:"click_marker,omitempty"`
	Loading       bool          `json:"loading"`
	Prompt        *Prompt       `json:"prompt,omitempty"`
	Version       int64         `json:"version"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// PersistedSession is the subset of a snapshot kept across reconnects.
// Routes are never persisted.
type PersistedSession struct {
	UserID      string      `json:"user_id"`
	Start       Endpoint    `json:"start"`
	End         Endpoint    `json:"end"`
	ActiveField ActiveField `json:"active_field"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// LayerEvent describes one change to the map layers of a session.
type LayerEvent struct {
	Type   string        `json:"type"`
	Handle string        `json:"handle,omitempty"`
	Kind   string        `json:"kind,omitempty"`
	Points []Coordinates `json:"points,omitempty"`

	// Polyline and Bounds are set on route overlays.
	Polyline string       `json:"polyline,omitempty"`
	Bounds   *maps.Bounds `json:"bounds,omitempty"`
}

const (
	LayerMarkerAdded    = "marker_added"
	LayerMarkerRemoved  = "marker_removed"
	LayerOverlayAdded   = "overlay_added"
	LayerOverlayRemoved = "overlay_removed"
	LayerInvalidateSize = "invalidate_size"
)
