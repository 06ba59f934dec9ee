package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultMapboxURL = "https://api.mapbox.com"

type MapboxProvider struct {
	accessToken string
	httpClient  *http.Client
	baseURL     string
}

func NewMapboxProvider(accessToken, baseURL string) *MapboxProvider {
	if baseURL == "" {
		baseURL = DefaultMapboxURL
	}

	return &MapboxProvider{
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

type mapboxFeature struct {
	ID        string    `json:"id"`
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	PlaceType []string  `json:"place_type"`
	Center    []float64 `json:"center"`
}

type mapboxGeocodeResponse struct {
	Features []mapboxFeature `json:"features"`
}

func (m *MapboxProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	params := url.Values{}
	params.Set("access_token", m.accessToken)
	params.Set("limit", "1")

	apiURL := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?%s",
		m.baseURL, lng, lat, params.Encode())

	var mapboxResp mapboxGeocodeResponse
	if err := m.getJSON(ctx, apiURL, &mapboxResp); err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}

	results := make([]GeocodeResult, 0, len(mapboxResp.Features))
	for _, feature := range mapboxResp.Features {
		if len(feature.Center) < 2 {
			continue
		}
		results = append(results, GeocodeResult{
			PlaceID: feature.ID,
			Address: feature.PlaceName,
			Coordinates: Location{
				Latitude:  feature.Center[1],
				Longitude: feature.Center[0],
			},
			Types: feature.PlaceType,
		})
	}

	return &GeocodeResponse{Results: results}, nil
}

func (m *MapboxProvider) SearchPlaces(ctx context.Context, request *PlaceSearchRequest) (*PlaceSearchResponse, error) {
	params := url.Values{}
	params.Set("access_token", m.accessToken)
	if request.Limit > 0 {
		params.Set("limit", strconv.Itoa(request.Limit))
	}
	if request.Location.Latitude != 0 && request.Location.Longitude != 0 {
		params.Set("proximity", fmt.Sprintf("%f,%f", request.Location.Longitude, request.Location.Latitude))
	}

	apiURL := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		m.baseURL, url.PathEscape(request.Query), params.Encode())

	var mapboxResp mapboxGeocodeResponse
	if err := m.getJSON(ctx, apiURL, &mapboxResp); err != nil {
		return nil, fmt.Errorf("place search request failed: %w", err)
	}

	results := make([]PlaceResult, 0, len(mapboxResp.Features))
	for _, feature := range mapboxResp.Features {
		if len(feature.Center) < 2 {
			continue
		}
		results = append(results, PlaceResult{
			PlaceID: feature.ID,
			Name:    feature.Text,
			Address: feature.PlaceName,
			Location: Location{
				Latitude:  feature.Center[1],
				Longitude: feature.Center[0],
			},
			Types: feature.PlaceType,
		})
	}

	return &PlaceSearchResponse{Results: results}, nil
}

func (m *MapboxProvider) GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error) {
	coords := []string{fmt.Sprintf("%f,%f", request.Origin.Longitude, request.Origin.Latitude)}
	for _, wp := range request.Waypoints {
		coords = append(coords, fmt.Sprintf("%f,%f", wp.Longitude, wp.Latitude))
	}
	coords = append(coords, fmt.Sprintf("%f,%f", request.Destination.Longitude, request.Destination.Latitude))

	profile := "driving"
	if request.Mode == "walking" || request.Mode == "cycling" {
		profile = request.Mode
	}

	params := url.Values{}
	params.Set("access_token", m.accessToken)
	params.Set("overview", "full")
	params.Set("geometries", "geojson")
	params.Set("alternatives", strconv.FormatBool(request.Alternatives))

	apiURL := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s?%s",
		m.baseURL, profile, strings.Join(coords, ";"), params.Encode())

	var mapboxResp struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Geometry struct {
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
	}

	if err := m.getJSON(ctx, apiURL, &mapboxResp); err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}

	if mapboxResp.Code == "NoRoute" || len(mapboxResp.Routes) == 0 {
		return nil, ErrNoRoute
	}

	routes := make([]Route, len(mapboxResp.Routes))
	for i, route := range mapboxResp.Routes {
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

func (m *MapboxProvider) getJSON(ctx context.Context, apiURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
