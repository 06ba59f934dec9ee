package models

import "fmt"

type MarkerHandle string

type OverlayHandle string

// RouteResult is the single live route of a session.
type RouteResult struct {
	DistanceMeters  float64       `json:"distance_meters"`
	DurationSeconds float64       `json:"duration_seconds"`
	Geometry        OverlayHandle `json:"geometry"`
}

func (r RouteResult) Details() RouteDetails {
	return NewRouteDetails(r.DistanceMeters, r.DurationSeconds)
}

// RouteDetails is the human summary: kilometres and minutes to two decimals.
type RouteDetails struct {
	Distance string `json:"distance"`
	Time     string `json:"time"`
}

func NewRouteDetails(distanceMeters, durationSeconds float64) RouteDetails {
	return RouteDetails{
		Distance: fmt.Sprintf("%.2f", distanceMeters/1000),
		Time:     fmt.Sprintf("%.2f", durationSeconds/60),
	}
}

// RouteOverlay is what gets drawn for one route: the line plus a marker at each end.
type RouteOverlay struct {
	Waypoints [2]Coordinates `json:"waypoints"`
	Line      []Coordinates  `json:"line"`
}
