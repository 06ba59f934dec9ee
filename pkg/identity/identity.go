package identity

import (
	"context"
	"errors"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Principal is the authenticated user behind a request.
type Principal struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Provider      string `json:"provider"`
}

// Verifier turns a bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
	// Revoke invalidates outstanding sessions of userID where the provider supports it.
	Revoke(ctx context.Context, userID string) error
}
