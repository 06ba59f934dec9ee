package interfaces

import (
	"context"
	"errors"
	"time"

	"routeplanner/internal/models"
)

var ErrSessionNotStored = errors.New("planning session not stored")

type SessionStore interface {
	Save(ctx context.Context, session *models.PersistedSession, ttl time.Duration) error
	// Load returns ErrSessionNotStored when nothing is kept for userID.
	Load(ctx context.Context, userID string) (*models.PersistedSession, error)
	Delete(ctx context.Context, userID string) error
}
