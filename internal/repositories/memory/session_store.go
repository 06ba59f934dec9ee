package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
)

type storedSession struct {
	session   models.PersistedSession
	expiresAt time.Time
}

// SessionStore keeps planning sessions in process memory. It is meant for
// development and single-instance deployments; nothing survives a restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]storedSession
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]storedSession),
		now:      time.Now,
	}
}

var _ interfaces.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Save(_ context.Context, session *models.PersistedSession, ttl time.Duration) error {
	if session == nil || session.UserID == "" {
		return errors.New("session store: missing user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := storedSession{session: *session}
	entry.session.Start = session.Start.Clone()
	entry.session.End = session.End.Clone()
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.sessions[session.UserID] = entry
	return nil
}

func (s *SessionStore) Load(_ context.Context, userID string) (*models.PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[userID]
	if !ok {
		return nil, interfaces.ErrSessionNotStored
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.sessions, userID)
		return nil, interfaces.ErrSessionNotStored
	}

	out := entry.session
	out.Start = entry.session.Start.Clone()
	out.End = entry.session.End.Clone()
	return &out, nil
}

func (s *SessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
