package models

import (
	"encoding/json"
	"time"
)

// ToolCall is a model-issued request to invoke a named, registered tool.
// Ephemeral: consumed once by the orchestrator and recorded only through the
// conversation messages that carry it.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ConversationMessage is one entry in a session's append-only conversation
// log. Ordering is the total order of the conversation; ownership is the
// (UserID, SessionID) pair.
type ConversationMessage struct {
	ID        string    `json:"id"` // msg_<uuid>
	UserID    string    `json:"user_id" badgerhold:"index"`
	SessionID string    `json:"session_id"`
	Sequence  int       `json:"sequence"`
	Role      string    `json:"role"` // system, user, assistant, tool
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// ToolCalls / ToolCallID mirror the fields on the provider-neutral
	// message form so a transcript can be replayed without loss.
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}
