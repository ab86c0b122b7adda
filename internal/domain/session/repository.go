package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionRepository defines the persistence contract for session aggregates.
type SessionRepository interface {
	// FindByID retrieves a live session. Expired sessions are reported as not found.
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// Save persists a new session.
	Save(ctx context.Context, s *Session) error

	// Update persists changes to an existing session with optimistic locking.
	// The session's version must already be incremented; the stored version
	// must equal Version()-1.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes sessions expired at now and returns their ids.
	DeleteExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}
