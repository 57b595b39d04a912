package events

import (
	"encoding/json"
	"fmt"
)

// Confirmation response states sent back by the client.
const (
	ConfirmationAccepted  = "accepted"
	ConfirmationDismissed = "dismissed"
)

// Payload is the inbound agent request body after verification.
type Payload struct {
	Messages []Message `json:"messages"`
}

// Message is one entry of the conversation history.
type Message struct {
	Role                 string              `json:"role"`
	Content              string              `json:"content"`
	CopilotConfirmations []ConfirmationReply `json:"copilot_confirmations,omitempty"`
}

// ConfirmationReply is the user's answer to a confirmation request.
type ConfirmationReply struct {
	// State is "accepted" or "dismissed".
	State string `json:"state"`
	// Confirmation echoes the metadata of the original request.
	Confirmation json.RawMessage `json:"confirmation,omitempty"`
}

// ParsePayload decodes an inbound request body.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return &p, nil
}

// UserMessage returns the content of the most recent message.
func (p *Payload) UserMessage() string {
	if len(p.Messages) == 0 {
		return ""
	}
	return p.Messages[len(p.Messages)-1].Content
}

// ConfirmationState returns the state of the most recent confirmation
// reply in the history, or "" if the user has not answered one.
func (p *Payload) ConfirmationState() string {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		if len(p.Messages[i].CopilotConfirmations) > 0 {
			return p.Messages[i].CopilotConfirmations[0].State
		}
	}
	return ""
}
