package telemetry

import (
	"context"
	"time"

	"weather-agent/internal/session"
)

// SessionManagerWrapper wraps a session manager to record session lifecycle events.
type SessionManagerWrapper struct {
	session.SessionManager
	metrics *Metrics
}

func NewSessionManagerWrapper(manager session.SessionManager, metrics *Metrics) *SessionManagerWrapper {
	return &SessionManagerWrapper{
		SessionManager: manager,
		metrics:        metrics,
	}
}

func (w *SessionManagerWrapper) CreateSession(ctx context.Context, client session.ClientInfo, protocolVersion string) (*session.Session, error) {
	sess, err := w.SessionManager.CreateSession(ctx, client, protocolVersion)
	if err == nil {
		w.metrics.RecordSessionCreated()
	}
	return sess, err
}

func (w *SessionManagerWrapper) DeleteSession(ctx context.Context, sessionID string) error {
	sess, getErr := w.SessionManager.ValidateSession(ctx, sessionID)

	err := w.SessionManager.DeleteSession(ctx, sessionID)
	if err == nil && getErr == nil {
		w.metrics.RecordSessionDeleted(time.Since(sess.CreatedAt))
	}
	return err
}

func (w *SessionManagerWrapper) CleanupExpiredSessions(ctx context.Context) (int, error) {
	n, err := w.SessionManager.CleanupExpiredSessions(ctx)
	if err == nil {
		w.metrics.RecordSessionsExpired(n)
	}
	return n, err
}
