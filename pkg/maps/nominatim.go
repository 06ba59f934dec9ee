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

	"golang.org/x/time/rate"
)

const (
	DefaultNominatimURL       = "https://nominatim.openstreetmap.org"
	DefaultNominatimUserAgent = "routeplanner/1.0"
)

// NominatimProvider geocodes against an OpenStreetMap Nominatim instance.
// The public instance allows at most one request per second per application,
// so every call waits on a process-wide limiter before going out.
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type NominatimOption func(*NominatimProvider)

func WithNominatimHTTPClient(client *http.Client) NominatimOption {
	return func(n *NominatimProvider) {
		n.httpClient = client
	}
}

// WithNominatimRateLimit sets the request rate. A value <= 0 disables throttling.
func WithNominatimRateLimit(perSecond float64) NominatimOption {
	return func(n *NominatimProvider) {
		if perSecond <= 0 {
			n.limiter = nil
			return
		}
		n.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func NewNominatimProvider(baseURL, userAgent string, opts ...NominatimOption) *NominatimProvider {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultNominatimUserAgent
	}

	n := &NominatimProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	Error       string `json:"error"`
}

func (p nominatimPlace) location() (Location, bool) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Location{}, false
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Location{}, false
	}
	return Location{Latitude: lat, Longitude: lon}, true
}

func (p nominatimPlace) types() []string {
	var types []string
	if p.Class != "" {
		types = append(types, p.Class)
	}
	if p.Type != "" {
		types = append(types, p.Type)
	}
	return types
}

func (n *NominatimProvider) SearchPlaces(ctx context.Context, request *PlaceSearchRequest) (*PlaceSearchResponse, error) {
	limit := request.Limit
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", request.Query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))

	var places []nominatimPlace
	if err := n.get(ctx, "/search", params, &places); err != nil {
		return nil, fmt.Errorf("place search request failed: %w", err)
	}

	results := make([]PlaceResult, 0, len(places))
	for _, place := range places {
		loc, ok := place.location()
		if !ok {
			continue
		}
		results = append(results, PlaceResult{
			PlaceID:  strconv.FormatInt(place.PlaceID, 10),
			Name:     place.DisplayName,
			Address:  place.DisplayName,
			Location: loc,
			Types:    place.types(),
		})
	}

	return &PlaceSearchResponse{Results: results}, nil
}

func (n *NominatimProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("format", "json")

	var place nominatimPlace
	if err := n.get(ctx, "/reverse", params, &place); err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}

	// Nominatim answers 200 with an error body when nothing is near the point.
	if place.Error != "" {
		return &GeocodeResponse{}, nil
	}

	loc, ok := place.location()
	if !ok {
		return &GeocodeResponse{}, nil
	}

	return &GeocodeResponse{Results: []GeocodeResult{{
		PlaceID:     strconv.FormatInt(place.PlaceID, 10),
		Address:     place.DisplayName,
		Coordinates: loc,
		Types:       place.types(),
	}}}, nil
}

func (n *NominatimProvider) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	reqURL := fmt.Sprintf("%s%s?%s", n.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &HTTPStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// HTTPStatusError is returned when a provider answers with a non-success status.
type HTTPStatusError struct {
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}
