package maps

import (
	"context"
	"errors"
)

// ErrNoRoute is returned by a Router when the engine found no path between the waypoints.
var ErrNoRoute = errors.New("maps: no route found")

// Geocoder turns free text into places and coordinates back into a place.
type Geocoder interface {
	SearchPlaces(ctx context.Context, request *PlaceSearchRequest) (*PlaceSearchResponse, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error)
}

// Router computes a driving route between an origin and a destination.
type Router interface {
	GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error)
}

// MapsProvider is a provider that can serve both geocoding and routing.
type MapsProvider interface {
	Geocoder
	Router
}

var (
	_ MapsProvider = (*GoogleMapsProvider)(nil)
	_ MapsProvider = (*MapboxProvider)(nil)
	_ Geocoder     = (*NominatimProvider)(nil)
	_ Router       = (*OSRMRouter)(nil)
)

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}

type GeocodeResult struct {
	PlaceID     string   `json:"place_id"`
	Address     string   `json:"formatted_address"`
	Coordinates Location `json:"geometry"`
	Types       []string `json:"types"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type DirectionsRequest struct {
	Origin      Location   `json:"origin"`
	Destination Location   `json:"destination"`
	Waypoints   []Location `json:"waypoints,omitempty"`
	Mode        string     `json:"mode"`            // driving, walking, bicycling
	Avoid       []string   `json:"avoid,omitempty"` // tolls, highways, ferries
	// Alternatives asks the engine for more than one route when it supports it.
	Alternatives bool `json:"alternatives"`
}

type DirectionsResponse struct {
	Routes []Route `json:"routes"`
}

type Route struct {
	Summary  string     `json:"summary"`
	Distance Distance   `json:"distance"`
	Duration Duration   `json:"duration"`
	Geometry []Location `json:"geometry"`
	Polyline string     `json:"overview_polyline,omitempty"`
	Bounds   Bounds     `json:"bounds"`
}

type Distance struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"` // in meters
}

type Duration struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"` // in seconds
}

type Bounds struct {
	Northeast Location `json:"northeast"`
	Southwest Location `json:"southwest"`
}

type PlaceSearchRequest struct {
	Query    string   `json:"query"`
	Location Location `json:"location,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

type PlaceSearchResponse struct {
	Results []PlaceResult `json:"results"`
}

type PlaceResult struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Address  string   `json:"formatted_address"`
	Location Location `json:"geometry"`
	Types    []string `json:"types"`
}

// BoundsOf returns the bounding box of a polyline, or a zero Bounds for an empty one.
func BoundsOf(points []Location) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	b := Bounds{Northeast: points[0], Southwest: points[0]}
	for _, p := range points[1:] {
		if p.Latitude > b.Northeast.Latitude {
			b.Northeast.Latitude = p.Latitude
		}
		if p.Longitude > b.Northeast.Longitude {
			b.Northeast.Longitude = p.Longitude
		}
		if p.Latitude < b.Southwest.Latitude {
			b.Southwest.Latitude = p.Latitude
		}
		if p.Longitude < b.Southwest.Longitude {
			b.Southwest.Longitude = p.Longitude
		}
	}

	return b
}
