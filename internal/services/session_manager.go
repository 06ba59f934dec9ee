package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
	"routeplanner/pkg/logger"
)

const DefaultSessionTTL = 24 * time.Hour

// LivePublisher fans session events out to a user's live connections.
type LivePublisher interface {
	SendToUser(userID string, messageType string, data interface{})
	CloseUser(userID string)
}

type SessionManager interface {
	// Open returns the user's session, restoring it from the store on first use.
	Open(ctx context.Context, userID string) (*PlanningSession, error)
	Get(userID string) (*PlanningSession, error)
	// End clears the session, forgets it and closes the user's live connections.
	End(ctx context.Context, userID string) error
	EvictIdle(idle time.Duration) int
	MapConfig() models.MapConfig
}

type SessionManagerConfig struct {
	SessionTTL  time.Duration
	SaveTimeout time.Duration
	MapConfig   models.MapConfig
}

type sessionManager struct {
	deps      SessionDeps
	store     interfaces.SessionStore
	publisher LivePublisher
	config    SessionManagerConfig
	logger    *logger.Logger

	mu       sync.Mutex
	sessions map[string]*PlanningSession
}

func NewSessionManager(
	deps SessionDeps,
	store interfaces.SessionStore,
	publisher LivePublisher,
	config SessionManagerConfig,
	logger *logger.Logger,
) SessionManager {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = 5 * time.Second
	}

	return &sessionManager{
		deps:      deps,
		store:     store,
		publisher: publisher,
		config:    config,
		logger:    logger.WithField("component", "session_manager"),
		sessions:  make(map[string]*PlanningSession),
	}
}

func (m *sessionManager) Open(ctx context.Context, userID string) (*PlanningSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrSessionNotFound)
	}

	if s, err := m.Get(userID); err == nil {
		return s, nil
	}

	session := NewPlanningSession(userID, m.deps)

	persisted, err := m.store.Load(ctx, userID)
	switch {
	case err == nil:
		session.Restore(persisted)
		m.logger.LogSessionEvent(userID, "restored", nil)
	case errors.Is(err, interfaces.ErrSessionNotStored):
		m.logger.LogSessionEvent(userID, "created", nil)
	default:
		m.logger.WithError(err).WithUserID(userID).Warn("Failed to load stored session, starting fresh")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another request may have opened the session while we were loading.
	if existing, ok := m.sessions[userID]; ok {
		return existing, nil
	}

	session.OnChange(m.observer(userID))
	m.sessions[userID] = session
	return session, nil
}

func (m *sessionManager) Get(userID string) (*PlanningSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *sessionManager) End(ctx context.Context, userID string) error {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		session.detach()
		session.Clear()
	}

	if err := m.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete stored session: %w", err)
	}

	if m.publisher != nil {
		m.publisher.CloseUser(userID)
	}

	m.logger.LogSessionEvent(userID, "ended", nil)
	return nil
}

// EvictIdle drops in-memory sessions idle for longer than idle. They stay in
// the store and are restored on the next Open.
func (m *sessionManager) EvictIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for userID, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			s.detach()
			delete(m.sessions, userID)
			evicted++
		}
	}
	return evicted
}

func (m *sessionManager) MapConfig() models.MapConfig {
	return m.config.MapConfig
}

func (m *sessionManager) observer(userID string) func(SessionEvent) {
	return func(ev SessionEvent) {
		switch ev.Type {
		case EventSnapshot:
			m.persist(userID, ev.Snapshot)
			m.publish(userID, EventSnapshot, ev.Snapshot)
		case EventLayer:
			m.publish(userID, EventLayer, ev.Layer)
		case EventLoading:
			m.publish(userID, EventLoading, map[string]bool{"loading": *ev.Loading})
		}
	}
}

func (m *sessionManager) persist(userID string, snap *models.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.SaveTimeout)
	defer cancel()

	persisted := &models.PersistedSession{
		UserID:      userID,
		Start:       snap.Start,
		End:         snap.End,
		ActiveField: snap.ActiveField,
		UpdatedAt:   snap.UpdatedAt,
	}
	if err := m.store.Save(ctx, persisted, m.config.SessionTTL); err != nil {
		m.logger.WithError(err).WithUserID(userID).Warn("Failed to persist session")
	}
}

func (m *sessionManager) publish(userID, messageType string, data interface{}) {
	if m.publisher == nil {
		return
	}
	m.publisher.SendToUser(userID, messageType, data)
}
