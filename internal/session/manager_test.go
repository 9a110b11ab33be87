package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, timeout time.Duration) (*Manager, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore(zerolog.Nop())
	t.Cleanup(func() { store.Close() })

	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	manager := NewManager(store, timeout, zerolog.Nop())
	manager.now = clock.Now
	return manager, store, clock
}

var testClient = ClientInfo{
	RemoteAddr: "127.0.0.1:12345",
	UserAgent:  "test-client/1.0",
	Name:       "weather-agent",
	Version:    "1.0.0",
}

func TestManager_CreateSession(t *testing.T) {
	manager, store, clock := newTestManager(t, time.Hour)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, testClient, "2025-03-26")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := ValidateID(session.ID); err != nil {
		t.Errorf("Created session has malformed ID %q: %v", session.ID, err)
	}
	if session.Client != testClient {
		t.Errorf("Expected client %+v, got %+v", testClient, session.Client)
	}
	if session.ProtocolVersion != "2025-03-26" {
		t.Errorf("Expected protocol version to be recorded, got %q", session.ProtocolVersion)
	}
	if !session.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Errorf("Expected expiry one hour from now, got %v", session.ExpiresAt)
	}

	stored, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session should be stored: %v", err)
	}
	if stored.ID != session.ID {
		t.Errorf("Stored session ID mismatch: expected %s, got %s", session.ID, stored.ID)
	}
}

func TestManager_ValidateSession(t *testing.T) {
	manager, _, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, testClient, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if _, err := manager.ValidateSession(ctx, session.ID); err != nil {
		t.Errorf("Expected valid session, got %v", err)
	}

	tests := []struct {
		name string
		id   string
		code string
	}{
		{"empty", "", ErrSessionInvalid},
		{"malformed", "not-a-session", ErrSessionInvalid},
		{"unknown", IDPrefix + "6f1c2a8e-3b1d-4c55-9a0e-2d1f4b7c8e90", ErrSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateSession(ctx, tt.id)
			if code := ErrorCode(err); code != tt.code {
				t.Errorf("Expected %s, got %s (%v)", tt.code, code, err)
			}
		})
	}
}

func TestManager_ExpiredSession(t *testing.T) {
	manager, store, clock := newTestManager(t, time.Minute)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, testClient, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	clock.Advance(2 * time.Minute)

	_, err = manager.ValidateSession(ctx, session.ID)
	if ErrorCode(err) != ErrSessionExpired {
		t.Fatalf("Expected %s, got %v", ErrSessionExpired, err)
	}
	if HTTPStatus(err) != 404 {
		t.Errorf("Expected expired sessions to map to 404, got %d", HTTPStatus(err))
	}

	// Expired sessions are removed on access
	if _, err := store.Get(ctx, session.ID); ErrorCode(err) != ErrSessionNotFound {
		t.Errorf("Expected expired session to be deleted, got %v", err)
	}
}

func TestManager_RefreshSession(t *testing.T) {
	manager, _, clock := newTestManager(t, time.Hour)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, testClient, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	clock.Advance(30 * time.Minute)

	refreshed, err := manager.RefreshSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to refresh session: %v", err)
	}
	if !refreshed.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Errorf("Expected expiry to move to %v, got %v", clock.Now().Add(time.Hour), refreshed.ExpiresAt)
	}

	// Past the original expiry but inside the refreshed window
	clock.Advance(45 * time.Minute)
	if _, err := manager.ValidateSession(ctx, session.ID); err != nil {
		t.Errorf("Expected refreshed session to be valid, got %v", err)
	}
}

// deleteAfterGet removes a session right after it has been read, the way a
// DELETE racing a refresh would.
type deleteAfterGet struct {
	*MemoryStore
}

func (s deleteAfterGet) Get(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.MemoryStore.Get(ctx, sessionID)
	if err == nil {
		s.MemoryStore.Delete(ctx, sessionID)
	}
	return session, err
}

func TestManager_RefreshDoesNotResurrectDeleted(t *testing.T) {
	store := NewMemoryStore(zerolog.Nop())
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	session, err := NewManager(store, time.Hour, zerolog.Nop()).CreateSession(ctx, testClient, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	manager := NewManager(deleteAfterGet{store}, time.Hour, zerolog.Nop())
	if _, err := manager.RefreshSession(ctx, session.ID); ErrorCode(err) != ErrSessionNotFound {
		t.Fatalf("Expected SESSION_NOT_FOUND, got %v", err)
	}
	if _, err := store.Get(ctx, session.ID); ErrorCode(err) != ErrSessionNotFound {
		t.Errorf("Expected deleted session to stay deleted, got %v", err)
	}
}

func TestMemoryStore_ReplaceMissing(t *testing.T) {
	store := NewMemoryStore(zerolog.Nop())
	err := store.Replace(context.Background(), &Session{ID: "gone"})
	if ErrorCode(err) != ErrSessionNotFound {
		t.Errorf("Expected SESSION_NOT_FOUND, got %v", err)
	}
}

func TestManager_DeleteSession(t *testing.T) {
	manager, _, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, testClient, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := manager.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if err := manager.DeleteSession(ctx, session.ID); ErrorCode(err) != ErrSessionNotFound {
		t.Errorf("Expected %s on second delete, got %v", ErrSessionNotFound, err)
	}
}

func TestManager_CleanupAndStats(t *testing.T) {
	manager, _, clock := newTestManager(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := manager.CreateSession(ctx, testClient, ""); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}
	clock.Advance(2 * time.Minute)
	fresh, err := manager.CreateSession(ctx, testClient, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	stats, err := manager.GetSessionStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Total != 4 || stats.Active != 1 || stats.Expired != 3 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if stats.Store != "memory" || stats.Timeout != "1m0s" {
		t.Errorf("Unexpected stats metadata %+v", stats)
	}

	deleted, err := manager.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted sessions, got %d", deleted)
	}

	count, err := manager.GetActiveSessionCount(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 remaining session, got %d", count)
	}
	if _, err := manager.ValidateSession(ctx, fresh.ID); err != nil {
		t.Errorf("Fresh session should survive cleanup: %v", err)
	}
}
