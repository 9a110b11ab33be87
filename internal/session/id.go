package session

import (
	"strings"

	"github.com/google/uuid"
)

// IDPrefix marks IDs issued by this server.
const IDPrefix = "wx-"

// NewID returns a fresh session ID built from a random UUID.
func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", NewSessionGenerationError(err)
	}
	return IDPrefix + id.String(), nil
}

// ValidateID checks that sessionID has the shape produced by NewID.
func ValidateID(sessionID string) error {
	if sessionID == "" {
		return NewSessionInvalidError("empty session ID")
	}
	rest, ok := strings.CutPrefix(sessionID, IDPrefix)
	if !ok {
		return NewSessionInvalidError("invalid session ID prefix")
	}
	id, err := uuid.Parse(rest)
	if err != nil || id.Version() != 4 || id.String() != rest {
		return NewSessionInvalidError("invalid session ID format")
	}
	return nil
}
