package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultOSRMURL = "https://router.project-osrm.org"

// OSRMRouter computes routes against an OSRM HTTP server.
type OSRMRouter struct {
	baseURL    string
	httpClient *http.Client
}

func NewOSRMRouter(baseURL string, httpClient *http.Client) *OSRMRouter {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &OSRMRouter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"` // in meters
	Duration float64 `json:"duration"` // in seconds
	Geometry struct {
		Type        string       `json:"type"`
		Coordinates [][2]float64 `json:"coordinates"` // lon,lat pairs
	} `json:"geometry"`
}

func osrmProfile(mode string) string {
	switch mode {
	case "walking":
		return "foot"
	case "bicycling":
		return "bike"
	default:
		return "driving"
	}
}

func (o *OSRMRouter) GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error) {
	coords := []string{fmt.Sprintf("%.6f,%.6f", request.Origin.Longitude, request.Origin.Latitude)}
	for _, wp := range request.Waypoints {
		coords = append(coords, fmt.Sprintf("%.6f,%.6f", wp.Longitude, wp.Latitude))
	}
	coords = append(coords, fmt.Sprintf("%.6f,%.6f", request.Destination.Longitude, request.Destination.Latitude))

	apiURL := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=geojson&alternatives=%t&steps=false",
		o.baseURL, osrmProfile(request.Mode), strings.Join(coords, ";"), request.Alternatives)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call OSRM API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// OSRM reports NoRoute with a 400 status and a JSON body, so decode first.
	var osrmResp osrmResponse
	if err := json.Unmarshal(body, &osrmResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &HTTPStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		return nil, fmt.Errorf("failed to decode OSRM response: %w", err)
	}

	switch osrmResp.Code {
	case "Ok":
	case "NoRoute", "NoSegment":
		return nil, ErrNoRoute
	default:
		return nil, fmt.Errorf("OSRM API returned %s: %s", osrmResp.Code, osrmResp.Message)
	}

	if len(osrmResp.Routes) == 0 {
		return nil, ErrNoRoute
	}

	routes := make([]Route, len(osrmResp.Routes))
	for i, route := range osrmResp.Routes {
		geometry := make([]Location, len(route.Geometry.Coordinates))
		for j, c := range route.Geometry.Coordinates {
			geometry[j] = Location{Latitude: c[1], Longitude: c[0]}
		}

		routes[i] = Route{
			Distance: Distance{
				Value: route.Distance,
				Text:  fmt.Sprintf("%.1f km", route.Distance/1000),
			},
			Duration: Duration{
				Value: route.Duration,
				Text:  fmt.Sprintf("%.0f min", route.Duration/60),
			},
			Geometry: geometry,
			Bounds:   BoundsOf(geometry),
		}
	}

	return &DirectionsResponse{Routes: routes}, nil
}
