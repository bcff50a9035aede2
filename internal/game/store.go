package game

import "context"

// SessionStore holds active sessions keyed by id, with a secondary index
// from owner identity to active session id. Pure data access; the engine
// owns all business rules.
//
// Implementations must treat each call as a consistent point operation:
// actions against different sessions never interfere.
type SessionStore interface {
	// Create stores a new session and claims the owner's active slot.
	// Returns *ActiveSessionError if the owner already has an active
	// session.
	Create(ctx context.Context, s *Session) error

	// Get returns a copy of the session, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Update replaces the stored session, or returns ErrNotFound.
	Update(ctx context.Context, s *Session) error

	// Remove deletes the session and releases the owner's active slot.
	// Removing an absent session is a no-op.
	Remove(ctx context.Context, id string) error

	// ActiveSession returns the session id owned by the identity, or ""
	// if none.
	ActiveSession(ctx context.Context, identity string) (string, error)
}
