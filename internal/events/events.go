// Package events implements the Copilot extension wire protocol: typed
// outbound server-sent events and the inbound agent payload.
package events

import "errors"

// ErrStreamTerminated is returned when emitting after a done or errors
// event. The protocol forbids any output after either.
var ErrStreamTerminated = errors.New("event stream already terminated")

// Error is a single user-visible agent error.
type Error struct {
	// Type is the error category; agent errors use "agent".
	Type string `json:"type"`
	// Code is a stable machine-readable error code.
	Code string `json:"code"`
	// Message is shown to the user.
	Message string `json:"message"`
	// Identifier tags the error instance.
	Identifier string `json:"identifier"`
}

// AgentError builds an agent-typed Error.
func AgentError(code, message, identifier string) Error {
	return Error{Type: "agent", Code: code, Message: message, Identifier: identifier}
}

// ConfirmationMetadata is the snapshot embedded in a confirmation
// request. It carries everything needed to act on the eventual response
// without a second store lookup.
type ConfirmationMetadata struct {
	User        string `json:"user"`
	FeatureIdea string `json:"featureIdea"`
	Suggestion  string `json:"suggestion"`
}

// Confirmation is an outgoing yes/no decision proposed to the user.
type Confirmation struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Metadata ConfirmationMetadata `json:"confirmation"`
}

// Emitter is the ordered event sink a dialogue turn writes to. Each
// event is serialized and flushed before the next is accepted.
type Emitter interface {
	// Ack acknowledges the request before any content.
	Ack() error

	// Text emits a chunk of assistant text.
	Text(content string) error

	// Confirm emits a confirmation request.
	Confirm(c Confirmation) error

	// Errors emits user-visible errors and terminates the stream.
	Errors(errs ...Error) error

	// Done terminates the stream normally.
	Done() error
}
