package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
	"routeplanner/pkg/cache"
)

const sessionKeyPrefix = "planner:session:"

type sessionStore struct {
	cache *cache.RedisCache
}

// NewSessionStore keeps each user's endpoints and active field under
// planner:session:<user id> with a sliding TTL.
func NewSessionStore(c *cache.RedisCache) interfaces.SessionStore {
	return &sessionStore{cache: c}
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

func (s *sessionStore) Save(ctx context.Context, session *models.PersistedSession, ttl time.Duration) error {
	if session == nil || session.UserID == "" {
		return errors.New("session store: missing user id")
	}
	if err := s.cache.Set(ctx, sessionKey(session.UserID), session, ttl); err != nil {
		return fmt.Errorf("failed to save planning session: %w", err)
	}
	return nil
}

func (s *sessionStore) Load(ctx context.Context, userID string) (*models.PersistedSession, error) {
	var session models.PersistedSession
	if err := s.cache.Get(ctx, sessionKey(userID), &session); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, interfaces.ErrSessionNotStored
		}
		return nil, fmt.Errorf("failed to load planning session: %w", err)
	}
	return &session, nil
}

func (s *sessionStore) Delete(ctx context.Context, userID string) error {
	if err := s.cache.Delete(ctx, sessionKey(userID)); err != nil {
		return fmt.Errorf("failed to delete planning session: %w", err)
	}
	return nil
}
