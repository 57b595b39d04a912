package session

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	// ErrNotFound is returned when no session exists for an identity.
	ErrNotFound = errors.New("session not found")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
	// ErrTurnInFlight is returned by TurnGuard when a turn for the same
	// identity is already being processed.
	ErrTurnInFlight = errors.New("turn already in flight for this identity")
)

// Store abstracts session persistence keyed by owner identity.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the session for an identity.
	// Returns ErrNotFound if no dialogue is open.
	Get(ctx context.Context, ownerID string) (*Session, error)

	// Put creates or replaces the session for its owner.
	Put(ctx context.Context, sess *Session) error

	// Delete closes the dialogue for an identity. Deleting an absent
	// session is not an error.
	Delete(ctx context.Context, ownerID string) error

	// Close releases any resources held by the store.
	Close() error
}
