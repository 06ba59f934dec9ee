package config

import (
	"strings"
	"time"
)

type AuthConfig struct {
	Provider                string        `yaml:"provider"`
	FirebaseProjectID       string        `yaml:"firebase_project_id"`
	FirebaseCredentialsFile string        `yaml:"firebase_credentials_file"`
	JWTSecret               string        `yaml:"jwt_secret"`
	JWTIssuer               string        `yaml:"jwt_issuer"`
	JWTAccessTokenTTL       time.Duration `yaml:"jwt_access_token_ttl"`
}

func loadAuthConfig() *AuthConfig {
	return &AuthConfig{
		Provider:                strings.ToLower(getEnv("AUTH_PROVIDER", "jwt")),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		JWTIssuer:               getEnv("JWT_ISSUER", "routeplanner"),
		JWTAccessTokenTTL:       getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
	}
}
