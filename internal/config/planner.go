package config

import (
	"strconv"
	"strings"
	"time"
)

type PlannerConfig struct {
	MinQueryLength         int           `yaml:"min_query_length"`
	SuggestionLimit        int           `yaml:"suggestion_limit"`
	ClearCoordinatesOnEdit bool          `yaml:"clear_coordinates_on_edit"`
	MapCenterLat           float64       `yaml:"map_center_lat"`
	MapCenterLon           float64       `yaml:"map_center_lon"`
	MapZoom                int           `yaml:"map_zoom"`
	TileURL                string        `yaml:"tile_url"`
	TileAttribution        string        `yaml:"tile_attribution"`
	SessionStore           string        `yaml:"session_store"`
	SessionTTL             time.Duration `yaml:"session_ttl"`
	SessionIdleTimeout     time.Duration `yaml:"session_idle_timeout"`
	GeocodeCacheBackend    string        `yaml:"geocode_cache_backend"`
	GeocodeCacheTTL        time.Duration `yaml:"geocode_cache_ttl"`
	JanitorInterval        time.Duration `yaml:"janitor_interval"`
}

func loadPlannerConfig() *PlannerConfig {
	lat, lon := getEnvAsLatLon("PLANNER_MAP_CENTER", 19.0760, 72.8777)

	return &PlannerConfig{
		MinQueryLength:         getEnvAsInt("PLANNER_MIN_QUERY_LENGTH", 3),
		SuggestionLimit:        getEnvAsInt("PLANNER_SUGGESTION_LIMIT", 5),
		ClearCoordinatesOnEdit: getEnvAsBool("PLANNER_CLEAR_COORDS_ON_EDIT", false),
		MapCenterLat:           lat,
		MapCenterLon:           lon,
		MapZoom:                getEnvAsInt("PLANNER_MAP_ZOOM", 13),
		TileURL:                getEnv("PLANNER_TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),
		TileAttribution:        getEnv("PLANNER_TILE_ATTRIBUTION", "&copy; OpenStreetMap contributors"),
		SessionStore:           strings.ToLower(getEnv("SESSION_STORE", "redis")),
		SessionTTL:             getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SessionIdleTimeout:     getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		GeocodeCacheBackend:    strings.ToLower(getEnv("GEOCODE_CACHE_BACKEND", "none")),
		GeocodeCacheTTL:        getEnvAsDuration("GEOCODE_CACHE_TTL", 7*24*time.Hour),
		JanitorInterval:        getEnvAsDuration("PLANNER_JANITOR_INTERVAL", time.Minute),
	}
}

// getEnvAsLatLon parses "lat,lon". Anything else yields the defaults.
func getEnvAsLatLon(key string, defaultLat, defaultLon float64) (float64, float64) {
	value := getEnv(key, "")
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return defaultLat, defaultLon
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return defaultLat, defaultLon
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return defaultLat, defaultLon
	}
	return lat, lon
}
