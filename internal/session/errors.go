package session

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// SessionError represents a session-related error
type SessionError struct {
	Code    string
	Message string
	Cause   error
}

func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// Error codes for session operations
const (
	ErrSessionNotFound   = "SESSION_NOT_FOUND"
	ErrSessionExpired    = "SESSION_EXPIRED"
	ErrSessionInvalid    = "SESSION_INVALID"
	ErrSessionGeneration = "SESSION_GENERATION_FAILED"
	ErrSessionStorage    = "SESSION_STORAGE_ERROR"
	ErrSessionRequired   = "SESSION_REQUIRED"
)

func NewSessionError(code, message string, cause error) *SessionError {
	return &SessionError{Code: code, Message: message, Cause: cause}
}

func NewSessionNotFoundError(sessionID string) *SessionError {
	return NewSessionError(ErrSessionNotFound, fmt.Sprintf("session not found: %s", sessionID), nil)
}

func NewSessionExpiredError(sessionID string) *SessionError {
	return NewSessionError(ErrSessionExpired, fmt.Sprintf("session expired: %s", sessionID), nil)
}

func NewSessionInvalidError(reason string) *SessionError {
	return NewSessionError(ErrSessionInvalid, fmt.Sprintf("session invalid: %s", reason), nil)
}

func NewSessionGenerationError(cause error) *SessionError {
	return NewSessionError(ErrSessionGeneration, "failed to generate session ID", cause)
}

func NewSessionStorageError(operation string, cause error) *SessionError {
	return NewSessionError(ErrSessionStorage, fmt.Sprintf("session storage error during %s", operation), cause)
}

// ErrorCode extracts the SessionError code from err.
func ErrorCode(err error) string {
	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		return sessionErr.Code
	}
	return "UNKNOWN_ERROR"
}

// HTTPStatus maps a session error to the status the streamable HTTP
// transport expects: 400 for malformed or missing IDs, 404 for unknown or
// expired sessions.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case ErrSessionInvalid, ErrSessionRequired:
		return http.StatusBadRequest
	case ErrSessionNotFound, ErrSessionExpired:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
