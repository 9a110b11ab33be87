package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// MemoryStore keeps sessions in process memory. Values are copied on the
// way in and out so callers never share a *Session with the store.
type MemoryStore struct {
	sessions map[string]Session
	mutex    sync.RWMutex
	logger   zerolog.Logger
}

func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		logger:   logger.With().Str("component", "memory_store").Logger(),
	}
}

func (s *MemoryStore) Set(ctx context.Context, session *Session) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[session.ID] = *session
	s.logger.Debug().
		Str("session_id", session.ID).
		Time("expires_at", session.ExpiresAt).
		Msg("Stored session")
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, session *Session) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return NewSessionNotFoundError(session.ID)
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, NewSessionNotFoundError(sessionID)
	}
	return &session, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return NewSessionNotFoundError(sessionID)
	}
	delete(s.sessions, sessionID)
	s.logger.Debug().Str("session_id", sessionID).Msg("Deleted session")
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		session := session
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions), nil
}

func (s *MemoryStore) Kind() string {
	return "memory"
}

// Close drops all sessions.
func (s *MemoryStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.logger.Info().Int("cleared_sessions", len(s.sessions)).Msg("Memory store closed")
	s.sessions = make(map[string]Session)
	return nil
}
