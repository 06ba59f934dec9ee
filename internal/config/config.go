package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       *AppConfig       `yaml:"app"`
	Maps      *MapsConfig      `yaml:"maps"`
	Routing   *RoutingConfig   `yaml:"routing"`
	Planner   *PlannerConfig   `yaml:"planner"`
	Redis     *RedisConfig     `yaml:"redis"`
	Database  *DatabaseConfig  `yaml:"database"`
	Postgres  *PostgresConfig  `yaml:"postgres"`
	Auth      *AuthConfig      `yaml:"auth"`
	WebSocket *WebSocketConfig `yaml:"websocket"`
	Security  *SecurityConfig  `yaml:"security"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	BaseURL     string `yaml:"base_url"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	LogOutput   string `yaml:"log_output"`
}

type SecurityConfig struct {
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	TrustedProxies     []string `yaml:"trusted_proxies"`
}

// Load reads a .env file when one exists and builds the configuration from
// the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{
		App:       loadAppConfig(),
		Maps:      loadMapsConfig(),
		Routing:   loadRoutingConfig(),
		Planner:   loadPlannerConfig(),
		Redis:     loadRedisConfig(),
		Database:  loadDatabaseConfig(),
		Postgres:  loadPostgresConfig(),
		Auth:      loadAuthConfig(),
		WebSocket: loadWebSocketConfig(),
		Security:  loadSecurityConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Maps.Provider {
	case "nominatim", "google", "mapbox":
	default:
		return fmt.Errorf("unknown MAPS_PROVIDER %q", c.Maps.Provider)
	}
	switch c.Routing.Provider {
	case "osrm", "google", "mapbox":
	default:
		return fmt.Errorf("unknown ROUTING_PROVIDER %q", c.Routing.Provider)
	}
	if (c.Maps.Provider == "google" || c.Routing.Provider == "google") && c.Maps.GoogleMaps.APIKey == "" {
		return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google provider")
	}
	if (c.Maps.Provider == "mapbox" || c.Routing.Provider == "mapbox") && c.Maps.Mapbox.AccessToken == "" {
		return fmt.Errorf("MAPBOX_ACCESS_TOKEN is required for the mapbox provider")
	}

	switch c.Planner.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.Planner.SessionStore)
	}
	switch c.Planner.GeocodeCacheBackend {
	case "none", "redis", "mongo", "postgres":
	default:
		return fmt.Errorf("unknown GEOCODE_CACHE_BACKEND %q", c.Planner.GeocodeCacheBackend)
	}
	if c.Planner.GeocodeCacheBackend == "postgres" && c.Postgres.URL == "" {
		return fmt.Errorf("POSTGRES_URL is required for the postgres geocode cache")
	}
	if c.Planner.MinQueryLength < 1 {
		return fmt.Errorf("PLANNER_MIN_QUERY_LENGTH must be positive")
	}
	if c.Planner.SuggestionLimit < 1 {
		return fmt.Errorf("PLANNER_SUGGESTION_LIMIT must be positive")
	}

	switch c.Auth.Provider {
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for the jwt auth provider")
		}
	case "firebase":
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.Auth.Provider)
	}

	return nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "routeplanner"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "0.0.0.0"),
		BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		Debug:       getEnvAsBool("APP_DEBUG", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		LogOutput:   getEnv("LOG_OUTPUT", "stdout"),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
}

func IsDevelopment() bool {
	return getEnv("APP_ENV", "development") == "development"
}
