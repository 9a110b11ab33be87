package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Manager implements SessionManager on top of a SessionStore.
type Manager struct {
	store   SessionStore
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewManager creates a manager whose sessions expire after timeout of inactivity.
func NewManager(store SessionStore, timeout time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		timeout: timeout,
		logger:  logger.With().Str("component", "session_manager").Logger(),
		now:     time.Now,
	}
}

func (m *Manager) CreateSession(ctx context.Context, client ClientInfo, protocolVersion string) (*Session, error) {
	id, err := NewID()
	if err != nil {
		m.logger.Error().Err(err).Str("remote_addr", client.RemoteAddr).Msg("Failed to generate session ID")
		return nil, err
	}

	now := m.now()
	session := &Session{
		ID:              id,
		ProtocolVersion: protocolVersion,
		CreatedAt:       now,
		LastAccess:      now,
		ExpiresAt:       now.Add(m.timeout),
		Client:          client,
	}

	if err := m.store.Set(ctx, session); err != nil {
		m.logger.Error().Err(err).Str("session_id", id).Msg("Failed to store session")
		return nil, NewSessionStorageError("create", err)
	}

	m.logger.Info().
		Str("session_id", id).
		Str("remote_addr", client.RemoteAddr).
		Str("client", client.Name).
		Str("protocol_version", protocolVersion).
		Time("expires_at", session.ExpiresAt).
		Msg("Session created")

	return session, nil
}

func (m *Manager) ValidateSession(ctx context.Context, sessionID string) (*Session, error) {
	if err := ValidateID(sessionID); err != nil {
		m.logger.Debug().Err(err).Str("session_id", sessionID).Msg("Rejected malformed session ID")
		return nil, err
	}

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if ErrorCode(err) == ErrSessionNotFound {
			return nil, err
		}
		return nil, NewSessionStorageError("get", err)
	}

	if session.ExpiredAt(m.now()) {
		m.logger.Debug().
			Str("session_id", sessionID).
			Time("expires_at", session.ExpiresAt).
			Msg("Session has expired")
		if err := m.store.Delete(ctx, sessionID); err != nil && ErrorCode(err) != ErrSessionNotFound {
			m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to delete expired session")
		}
		return nil, NewSessionExpiredError(sessionID)
	}

	return session, nil
}

func (m *Manager) RefreshSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := m.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	session.LastAccess = now
	session.ExpiresAt = now.Add(m.timeout)

	if err := m.store.Replace(ctx, session); err != nil {
		if ErrorCode(err) == ErrSessionNotFound {
			return nil, err
		}
		m.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to refresh session")
		return nil, NewSessionStorageError("refresh", err)
	}
	return session, nil
}

func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		if ErrorCode(err) == ErrSessionNotFound {
			return err
		}
		return NewSessionStorageError("delete", err)
	}

	m.logger.Info().Str("session_id", sessionID).Msg("Session deleted")
	return nil
}

func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return 0, NewSessionStorageError("cleanup_list", err)
	}

	now := m.now()
	deleted := 0
	for _, session := range sessions {
		if !session.ExpiredAt(now) {
			continue
		}
		if err := m.store.Delete(ctx, session.ID); err != nil {
			m.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to delete expired session during cleanup")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		m.logger.Info().Int("deleted_count", deleted).Int("total_sessions", len(sessions)).Msg("Cleanup completed")
	}
	return deleted, nil
}

func (m *Manager) GetActiveSessionCount(ctx context.Context) (int, error) {
	count, err := m.store.Count(ctx)
	if err != nil {
		return 0, NewSessionStorageError("count", err)
	}
	return count, nil
}

func (m *Manager) GetSessionStats(ctx context.Context) (Stats, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return Stats{}, NewSessionStorageError("stats", err)
	}

	stats := Stats{
		Total:   len(sessions),
		Timeout: m.timeout.String(),
		Store:   m.store.Kind(),
	}
	now := m.now()
	for _, session := range sessions {
		if session.ExpiredAt(now) {
			stats.Expired++
		} else {
			stats.Active++
		}
	}
	return stats, nil
}
