// Package command classifies raw user text into the fixed intent
// vocabulary of the brainstorming dialogue.
package command

import "strings"

// Intent is the classified meaning of a user's message.
type Intent string

const (
	// IntentStart opens a new brainstorming dialogue.
	IntentStart Intent = "start"
	// IntentNext asks for another idea within an open dialogue.
	IntentNext Intent = "next"
	// IntentFinalize asks to lock in the current idea.
	IntentFinalize Intent = "finalize"
	// IntentFreeform is anything else. Inside an open dialogue it is
	// treated as a refinement suggestion, otherwise it gets a greeting.
	IntentFreeform Intent = "freeform"
)

// Trigger tokens recognized inside user messages.
const (
	TokenStart    = "/feature"
	TokenNext     = "/new"
	TokenFinalize = "/done"
)

// Normalize trims surrounding whitespace and case-folds the input.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Parse classifies raw user text and returns the intent together with
// the normalized text. Classification is a substring test in a fixed
// priority order (finalize, next, start) so a message containing several
// trigger tokens resolves deterministically.
func Parse(raw string) (Intent, string) {
	text := Normalize(raw)

	switch {
	case strings.Contains(text, TokenFinalize):
		return IntentFinalize, text
	case strings.Contains(text, TokenNext):
		return IntentNext, text
	case strings.Contains(text, TokenStart):
		return IntentStart, text
	default:
		return IntentFreeform, text
	}
}
