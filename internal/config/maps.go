package config

import (
	"strings"
	"time"
)

// MapsConfig selects the geocoding provider and holds the credentials of
// every provider that needs them.
type MapsConfig struct {
	Provider   string            `yaml:"provider"`
	Nominatim  *NominatimConfig  `yaml:"nominatim"`
	GoogleMaps *GoogleMapsConfig `yaml:"google_maps"`
	Mapbox     *MapboxConfig     `yaml:"mapbox"`
	Timeout    time.Duration     `yaml:"timeout"`
}

type NominatimConfig struct {
	BaseURL   string  `yaml:"base_url"`
	UserAgent string  `yaml:"user_agent"`
	RateLimit float64 `yaml:"rate_limit"`
}

type GoogleMapsConfig struct {
	APIKey string `yaml:"api_key"`
}

type MapboxConfig struct {
	AccessToken string `yaml:"access_token"`
	BaseURL     string `yaml:"base_url"`
}

type RoutingConfig struct {
	Provider    string        `yaml:"provider"`
	OSRMBaseURL string        `yaml:"osrm_base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Provider: strings.ToLower(getEnv("MAPS_PROVIDER", "nominatim")),
		Nominatim: &NominatimConfig{
			BaseURL:   getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getEnv("NOMINATIM_USER_AGENT", "routeplanner/1.0"),
			RateLimit: getEnvAsFloat64("NOMINATIM_RATE_LIMIT", 1),
		},
		GoogleMaps: &GoogleMapsConfig{
			APIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		},
		Mapbox: &MapboxConfig{
			AccessToken: getEnv("MAPBOX_ACCESS_TOKEN", ""),
			BaseURL:     getEnv("MAPBOX_BASE_URL", "https://api.mapbox.com"),
		},
		Timeout: getEnvAsDuration("MAPS_TIMEOUT", 10*time.Second),
	}
}

func loadRoutingConfig() *RoutingConfig {
	return &RoutingConfig{
		Provider:    strings.ToLower(getEnv("ROUTING_PROVIDER", "osrm")),
		OSRMBaseURL: getEnv("OSRM_BASE_URL", "https://router.project-osrm.org"),
		Timeout:     getEnvAsDuration("ROUTING_TIMEOUT", 15*time.Second),
	}
}
