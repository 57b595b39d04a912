package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process store. Sessions live for the
// lifetime of the process unless a TTL is configured, in which case a
// sweep (see Sweeper) removes abandoned dialogues.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	closed   bool

	// now is swappable for tests.
	now func() time.Time
}

// NewMemoryStore creates an in-memory store. A ttl of 0 means sessions
// never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get retrieves the session for an identity.
func (m *MemoryStore) Get(ctx context.Context, ownerID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	sess, ok := m.sessions[ownerID]
	if !ok || m.expired(sess) {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Put creates or replaces the session for its owner.
func (m *MemoryStore) Put(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.sessions[sess.OwnerID] = sess.Clone()
	return nil
}

// Delete closes the dialogue for an identity.
func (m *MemoryStore) Delete(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.sessions, ownerID)
	return nil
}

// Len returns the number of open sessions, counting expired entries
// that have not been swept yet as closed.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, sess := range m.sessions {
		if !m.expired(sess) {
			n++
		}
	}
	return n
}

// Sweep removes expired sessions and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0
	}

	dropped := 0
	for owner, sess := range m.sessions {
		if m.expired(sess) {
			delete(m.sessions, owner)
			dropped++
		}
	}
	return dropped
}

// Close releases the store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.sessions = nil
	return nil
}

func (m *MemoryStore) expired(sess *Session) bool {
	return m.ttl > 0 && m.now().Sub(sess.UpdatedAt) > m.ttl
}
