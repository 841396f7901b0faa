// internal/models/conversation.go
package models

// ConversationState is the per-session dialog state. Storage and lifecycle
// belong to the conversation front-end; the dialog engine receives it by
// reference on every turn and is the only mutator of its slot set.
type ConversationState struct {
	SessionID  string            `json:"sessionId"`
	Intent     string            `json:"intent,omitempty"`
	Slots      SlotSet           `json:"slots"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewConversationState creates an empty state for a fresh session.
func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{
		SessionID:  sessionID,
		Slots:      NewSlotSet(),
		Attributes: make(map[string]string),
	}
}
