package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	handlers "routeplanner/internal/handlers/shared"
	"routeplanner/internal/middleware"
	"routeplanner/internal/models"
	"routeplanner/internal/repositories/memory"
	"routeplanner/internal/services"
	"routeplanner/pkg/identity"
	"routeplanner/pkg/logger"
	"routeplanner/pkg/maps"

	"github.com/gin-gonic/gin"
)

type stubGeocoder struct{}

func (stubGeocoder) SearchPlaces(_ context.Context, req *maps.PlaceSearchRequest) (*maps.PlaceSearchResponse, error) {
	return &maps.PlaceSearchResponse{Results: []maps.PlaceResult{{
		Name:     req.Query,
		Address:  "Mumbai, Maharashtra, India",
		Location: maps.Location{Latitude: 19.0760, Longitude: 72.8777},
	}}}, nil
}

func (stubGeocoder) ReverseGeocode(_ context.Context, lat, lng float64) (*maps.GeocodeResponse, error) {
	return &maps.GeocodeResponse{Results: []maps.GeocodeResult{{
		Address:     "Thane, Maharashtra, India",
		Coordinates: maps.Location{Latitude: lat, Longitude: lng},
	}}}, nil
}

type stubRouter struct{}

func (stubRouter) GetDirections(_ context.Context, req *maps.DirectionsRequest) (*maps.DirectionsResponse, error) {
	return &maps.DirectionsResponse{Routes: []maps.Route{{
		Distance: maps.Distance{Value: 15320},
		Duration: maps.Duration{Value: 1710},
		Geometry: []maps.Location{req.Origin, req.Destination},
	}}}, nil
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	verifier := identity.NewJWTVerifier("test-secret", "routeplanner", time.Hour)
	token, err := verifier.Issue("user-1", "user1@example.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	deps := services.SessionDeps{
		Geocoder:   services.NewGeocodeClient(stubGeocoder{}, nil, services.GeocodeClientConfig{}, log),
		Router:     stubRouter{},
		RouterName: "stub",
		Logger:     log,
	}
	manager := services.NewSessionManager(deps, memory.NewSessionStore(), nil, services.SessionManagerConfig{
		MapConfig: models.MapConfig{Center: models.Coordinates{Lat: 19.076, Lon: 72.8777}, Zoom: 13},
	}, log)

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Planner:   handlers.NewPlannerHandler(manager, log),
		Auth:      handlers.NewAuthHandler(verifier, manager, log),
		Verifier:  verifier,
		Limiter:   middleware.NewIPRateLimiter(6000, 100, log),
		Logger:    log,
		Version:   "test",
		StartedAt: time.Now(),
	})

	return &testAPI{t: t, router: router, token: token}
}

func (a *testAPI) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

func (a *testAPI) snapshot(env envelope) models.Snapshot {
	a.t.Helper()
	var snap models.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		a.t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func TestPlannerFlow(t *testing.T) {
	api := newTestAPI(t)
	const base = "/api/v1/planner"

	code, env := api.do(http.MethodPost, base+"/endpoints/start/text", map[string]string{"text": "Mumbai"})
	if code != http.StatusOK {
		t.Fatalf("edit text: %d %+v", code, env.Error)
	}
	if snap := api.snapshot(env); len(snap.Start.Suggestions) != 1 {
		t.Fatalf("suggestions = %+v", snap.Start.Suggestions)
	}

	code, env = api.do(http.MethodPost, base+"/endpoints/start/suggestions/0", nil)
	if code != http.StatusOK {
		t.Fatalf("select suggestion: %d %+v", code, env.Error)
	}
	if snap := api.snapshot(env); snap.Start.Text != "Mumbai, Maharashtra, India" || snap.Start.Coordinates == nil {
		t.Fatalf("start = %+v", snap.Start)
	}

	code, env = api.do(http.MethodPost, base+"/route", nil)
	if code != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != models.PromptIncompleteEndpoints {
		t.Fatalf("route without end: %d %+v", code, env.Error)
	}
	if env.Error.Message != "Select both start and end locations." {
		t.Fatalf("message = %q", env.Error.Message)
	}

	if code, env = api.do(http.MethodPost, base+"/endpoints/end/select-from-map", nil); code != http.StatusOK {
		t.Fatalf("select from map: %d %+v", code, env.Error)
	}
	if snap := api.snapshot(env); snap.Banner != "Click on the map to set your destination" {
		t.Fatalf("banner = %q", snap.Banner)
	}

	code, env = api.do(http.MethodPost, base+"/map/click", map[string]float64{"lat": 19.2183, "lon": 72.9781})
	if code != http.StatusOK {
		t.Fatalf("map click: %d %+v", code, env.Error)
	}
	if snap := api.snapshot(env); snap.End.Text != "Thane, Maharashtra, India" {
		t.Fatalf("end = %+v", snap.End)
	}

	code, env = api.do(http.MethodPost, base+"/route", nil)
	if code != http.StatusOK {
		t.Fatalf("route: %d %+v", code, env.Error)
	}
	snap := api.snapshot(env)
	if snap.Route == nil || snap.Route.Distance != "15.32" || snap.Route.Time != "28.50" {
		t.Fatalf("route = %+v", snap.Route)
	}

	code, env = api.do(http.MethodDelete, base+"/session", nil)
	if code != http.StatusOK {
		t.Fatalf("clear: %d", code)
	}
	if snap := api.snapshot(env); snap.Route != nil || snap.Start.Coordinates != nil || snap.ActiveField != models.ActiveFieldNone {
		t.Fatalf("after clear = %+v", snap)
	}
}

func TestPlannerRejectsBadInput(t *testing.T) {
	api := newTestAPI(t)
	const base = "/api/v1/planner"

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown role", http.MethodPost, base + "/endpoints/middle/text", map[string]string{"text": "x"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"latitude out of range", http.MethodPost, base + "/map/click", map[string]float64{"lat": 100, "lon": 0}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing longitude", http.MethodPost, base + "/map/click", map[string]float64{"lat": 10}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"click without target", http.MethodPost, base + "/map/click", map[string]float64{"lat": 19.1, "lon": 72.88}, http.StatusUnprocessableEntity, models.PromptNoActiveField},
		{"unknown suggestion", http.MethodPost, base + "/endpoints/start/suggestions/3", nil, http.StatusBadRequest, "UNKNOWN_SUGGESTION"},
		{"bad suggestion index", http.MethodPost, base + "/endpoints/start/suggestions/first", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"geolocation denied", http.MethodPost, base + "/endpoints/start/current-location", map[string]interface{}{"error_code": 1, "error_message": "User denied Geolocation"}, http.StatusUnprocessableEntity, models.PromptGeolocationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := api.do(tt.method, tt.path, tt.body)
			if code != tt.status {
				t.Fatalf("status = %d, want %d", code, tt.status)
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestAuthRoutes(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/api/v1/auth/me", nil)
	if code != http.StatusOK {
		t.Fatalf("me: %d", code)
	}
	var principal identity.Principal
	if err := json.Unmarshal(env.Data, &principal); err != nil {
		t.Fatal(err)
	}
	if principal.UserID != "user-1" || principal.Email != "user1@example.com" {
		t.Fatalf("principal = %+v", principal)
	}

	api.do(http.MethodPost, "/api/v1/planner/endpoints/start/select-from-map", nil)
	if code, _ := api.do(http.MethodPost, "/api/v1/auth/logout", nil); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}

	_, env = api.do(http.MethodGet, "/api/v1/planner/session", nil)
	if snap := api.snapshot(env); snap.ActiveField != models.ActiveFieldNone {
		t.Fatalf("session survived logout: active field %q", snap.ActiveField)
	}

	api.token = ""
	if code, _ := api.do(http.MethodGet, "/api/v1/planner/session", nil); code != http.StatusUnauthorized {
		t.Fatalf("without token: %d, want 401", code)
	}
	api.token = "garbage"
	if code, _ := api.do(http.MethodGet, "/api/v1/auth/me", nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d, want 401", code)
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		checks map[string]func(context.Context) error
		status int
		want   string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{"all healthy", map[string]func(context.Context) error{
			"redis": func(context.Context) error { return nil },
		}, http.StatusOK, "ok"},
		{"store down", map[string]func(context.Context) error{
			"redis":    func(context.Context) error { return nil },
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", healthHandler(Dependencies{
				Version:      "test",
				StartedAt:    time.Now(),
				HealthChecks: tt.checks,
			}))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.want || len(body.Checks) != len(tt.checks) {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}
