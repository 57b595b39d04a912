package session

import "sync"

// TurnGuard serializes turn processing per identity. The store itself
// only guarantees atomic per-key reads and writes; without the guard,
// two concurrent turns for the same user race on read-modify-write and
// the earlier result is silently discarded. Concurrent turns are
// rejected rather than queued so a double-submitted request fails fast.
type TurnGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewTurnGuard creates an empty guard.
func NewTurnGuard() *TurnGuard {
	return &TurnGuard{inFlight: make(map[string]struct{})}
}

// Acquire marks a turn as in flight for the identity. Returns
// ErrTurnInFlight if one already is.
func (g *TurnGuard) Acquire(ownerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[ownerID]; busy {
		return ErrTurnInFlight
	}
	g.inFlight[ownerID] = struct{}{}
	return nil
}

// Release clears the in-flight mark for the identity.
func (g *TurnGuard) Release(ownerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, ownerID)
}
