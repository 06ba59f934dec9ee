package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type FirebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier builds an auth client from a service account file.
// An empty credentialsFile falls back to application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	decoded, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	principal := &Principal{
		UserID:   decoded.UID,
		Provider: "firebase",
	}
	if email, ok := decoded.Claims["email"].(string); ok {
		principal.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		principal.DisplayName = name
	}
	if verified, ok := decoded.Claims["email_verified"].(bool); ok {
		principal.EmailVerified = verified
	}

	return principal, nil
}

func (v *FirebaseVerifier) Revoke(ctx context.Context, userID string) error {
	if err := v.client.RevokeRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}
