// Package session tracks open brainstorming dialogues per user identity.
// A session exists in the store exactly while a dialogue is open; idle
// users have no entry.
package session

import (
	"errors"
	"time"
)

// State is the dialogue phase of an open session. The idle phase has no
// session at all, so it needs no representation here.
type State string

const (
	// StateBrainstorming means the dialogue is open and ideas are
	// being generated or refined.
	StateBrainstorming State = "brainstorming"
	// StateAwaitingConfirm means a finalization confirmation has been
	// issued and no idea mutation may happen until the user answers.
	StateAwaitingConfirm State = "awaiting_confirm"
)

// Session is the per-identity record of an open brainstorming dialogue.
type Session struct {
	// OwnerID is the opaque user identity that keys the session.
	OwnerID string `json:"ownerId"`
	// State is the current dialogue phase.
	State State `json:"state"`
	// CurrentIdea is the latest generated or refined idea text.
	// Non-empty for the whole lifetime of the session.
	CurrentIdea string `json:"currentIdea"`
	// TurnCount is incremented on every idea-producing turn. Starts at 1.
	TurnCount int `json:"turnCount"`
	// PendingSuggestion carries a free-text improvement request to the
	// next idea-producing turn.
	PendingSuggestion string `json:"pendingSuggestion,omitempty"`
	// CreatedAt is when the dialogue was opened.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is when the session was last mutated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate reports whether the session satisfies its invariants.
func (s *Session) Validate() error {
	if s.OwnerID == "" {
		return errors.New("session owner is empty")
	}
	if s.CurrentIdea == "" {
		return errors.New("session has no idea")
	}
	if s.TurnCount < 1 {
		return errors.New("session turn count below 1")
	}
	switch s.State {
	case StateBrainstorming, StateAwaitingConfirm:
	default:
		return errors.New("unknown session state")
	}
	return nil
}

// Clone returns a copy so callers can snapshot session fields without
// racing a later in-place mutation.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}
