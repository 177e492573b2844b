// Package session keeps per-conversation memory for the shopping assistant:
// a bounded message history and at most one pending clarification per
// conversation id.
package session

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation history. Immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PendingClarification is the stored base message awaiting merge with the
// user's next reply. Rounds counts consecutive clarification turns so the
// dialogue manager can enforce its termination bound.
type PendingClarification struct {
	BaseMessage string `json:"base_message"`
	Rounds      int    `json:"rounds"`
}

// Store is the conversation-state contract. Implementations must let
// requests for different conversation ids proceed in parallel; Acquire
// serializes the pending-read / decide / pending-write sequence for one id.
type Store interface {
	// Acquire takes the per-conversation lock and returns its release func.
	// Hold it for the whole turn, not just individual store calls.
	Acquire(id string) (release func())

	// History returns the retained message window, oldest first.
	History(ctx context.Context, id string) ([]Message, error)

	// Append adds a message, trimming the history to the retention window.
	Append(ctx context.Context, id string, role Role, content string) error

	// TakePending returns and clears the pending clarification, or nil.
	TakePending(ctx context.Context, id string) (*PendingClarification, error)

	// SetPending records a pending clarification for the conversation.
	SetPending(ctx context.Context, id string, p PendingClarification) error

	Close() error
}
