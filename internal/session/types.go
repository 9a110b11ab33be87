package session

import (
	"context"
	"time"
)

// HeaderName carries the session ID on MCP requests and responses.
const HeaderName = "Mcp-Session-Id"

// Session is one MCP client connection, created by initialize and ended by
// DELETE /mcp or expiry.
type Session struct {
	ID              string     `json:"id"`
	ProtocolVersion string     `json:"protocol_version,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastAccess      time.Time  `json:"last_access"`
	ExpiresAt       time.Time  `json:"expires_at"`
	Client          ClientInfo `json:"client"`
}

// ClientInfo describes the peer that opened the session.
type ClientInfo struct {
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
	// Name and Version come from the initialize request's clientInfo.
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// ExpiredAt reports whether the session has expired at t.
func (s *Session) ExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// Stats summarizes the sessions held by a store.
type Stats struct {
	Total   int    `json:"total_sessions"`
	Active  int    `json:"active_sessions"`
	Expired int    `json:"expired_sessions"`
	Timeout string `json:"session_timeout"`
	Store   string `json:"store_type"`
}

// SessionManager defines the session lifecycle used by the MCP handler and
// the session endpoints.
type SessionManager interface {
	CreateSession(ctx context.Context, client ClientInfo, protocolVersion string) (*Session, error)

	// ValidateSession returns the session if it exists and has not expired.
	ValidateSession(ctx context.Context, sessionID string) (*Session, error)

	// RefreshSession extends the expiry of a valid session.
	RefreshSession(ctx context.Context, sessionID string) (*Session, error)

	DeleteSession(ctx context.Context, sessionID string) error

	// CleanupExpiredSessions removes expired sessions and returns how many were removed.
	CleanupExpiredSessions(ctx context.Context) (int, error)

	GetActiveSessionCount(ctx context.Context) (int, error)

	GetSessionStats(ctx context.Context) (Stats, error)
}

// SessionStore persists sessions. Implementations return a
// SESSION_NOT_FOUND SessionError for unknown IDs.
type SessionStore interface {
	Set(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error

	// Replace overwrites an existing session and fails with
	// SESSION_NOT_FOUND if it has been deleted in the meantime.
	Replace(ctx context.Context, session *Session) error

	List(ctx context.Context) ([]*Session, error)
	Count(ctx context.Context) (int, error)

	// Kind names the backend for stats output.
	Kind() string
	Close() error
}
