package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string, opts ...maps.ClientOption) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

func (g *GoogleMapsProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	req := &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	}

	resp, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		if isZeroResults(err) {
			return &GeocodeResponse{}, nil
		}
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}

	results := make([]GeocodeResult, len(resp))
	for i, result := range resp {
		results[i] = GeocodeResult{
			PlaceID: result.PlaceID,
			Address: result.FormattedAddress,
			Coordinates: Location{
				Latitude:  result.Geometry.Location.Lat,
				Longitude: result.Geometry.Location.Lng,
			},
			Types: result.Types,
		}
	}

	return &GeocodeResponse{Results: results}, nil
}

func (g *GoogleMapsProvider) SearchPlaces(ctx context.Context, request *PlaceSearchRequest) (*PlaceSearchResponse, error) {
	req := &maps.TextSearchRequest{
		Query: request.Query,
	}

	if request.Location.Latitude != 0 && request.Location.Longitude != 0 {
		req.Location = &maps.LatLng{
			Lat: request.Location.Latitude,
			Lng: request.Location.Longitude,
		}
	}

	resp, err := g.client.TextSearch(ctx, req)
	if err != nil {
		if isZeroResults(err) {
			return &PlaceSearchResponse{}, nil
		}
		return nil, fmt.Errorf("place search request failed: %w", err)
	}

	found := resp.Results
	if request.Limit > 0 && len(found) > request.Limit {
		found = found[:request.Limit]
	}

	results := make([]PlaceResult, len(found))
	for i, result := range found {
		results[i] = PlaceResult{
			PlaceID: result.PlaceID,
			Name:    result.Name,
			Address: result.FormattedAddress,
			Location: Location{
				Latitude:  result.Geometry.Location.Lat,
				Longitude: result.Geometry.Location.Lng,
			},
			Types: result.Types,
		}
	}

	return &PlaceSearchResponse{Results: results}, nil
}

func (g *GoogleMapsProvider) GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error) {
	mode := maps.TravelModeDriving
	if request.Mode != "" {
		mode = maps.Mode(request.Mode)
	}

	req := &maps.DirectionsRequest{
		Origin:       fmt.Sprintf("%f,%f", request.Origin.Latitude, request.Origin.Longitude),
		Destination:  fmt.Sprintf("%f,%f", request.Destination.Latitude, request.Destination.Longitude),
		Mode:         mode,
		Alternatives: request.Alternatives,
	}

	if len(request.Waypoints) > 0 {
		waypoints := make([]string, len(request.Waypoints))
		for i, wp := range request.Waypoints {
			waypoints[i] = fmt.Sprintf("%f,%f", wp.Latitude, wp.Longitude)
		}
		req.Waypoints = waypoints
	}

	if len(request.Avoid) > 0 {
		avoid := make([]maps.Avoid, len(request.Avoid))
		for i, a := range request.Avoid {
			avoid[i] = maps.Avoid(a)
		}
		req.Avoid = avoid
	}

	resp, _, err := g.client.Directions(ctx, req)
	if err != nil {
		if isZeroResults(err) {
			return nil, ErrNoRoute
		}
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(resp) == 0 {
		return nil, ErrNoRoute
	}

	routes := make([]Route, 0, len(resp))
	for _, route := range resp {
		if len(route.Legs) == 0 {
			continue
		}

		var meters, seconds float64
		for _, leg := range route.Legs {
			meters += float64(leg.Distance.Meters)
			seconds += leg.Duration.Seconds()
		}

		var geometry []Location
		if points, err := route.OverviewPolyline.Decode(); err == nil {
			geometry = make([]Location, len(points))
			for j, p := range points {
				geometry[j] = Location{Latitude: p.Lat, Longitude: p.Lng}
			}
		}

		routes = append(routes, Route{
			Summary: route.Summary,
			Distance: Distance{
				Text:  route.Legs[0].Distance.HumanReadable,
				Value: meters,
			},
			Duration: Duration{
				Text:  route.Legs[0].Duration.String(),
				Value: seconds,
			},
			Geometry: geometry,
			Polyline: route.OverviewPolyline.Points,
			Bounds: Bounds{
				Northeast: Location{
					Latitude:  route.Bounds.NorthEast.Lat,
					Longitude: route.Bounds.NorthEast.Lng,
				},
				Southwest: Location{
					Latitude:  route.Bounds.SouthWest.Lat,
					Longitude: route.Bounds.SouthWest.Lng,
				},
			},
		})
	}
	if len(routes) == 0 {
		return nil, ErrNoRoute
	}

	return &DirectionsResponse{Routes: routes}, nil
}

func isZeroResults(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND")
}
