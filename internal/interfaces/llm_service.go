package interfaces

import (
	"context"

	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeOffline indicates the service uses local/offline LLM models
	LLMModeOffline LLMMode = "offline"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", "system", or "tool"
	Role string `json:"role"`

	// Content contains the text content of the message
	Content string `json:"content"`

	// ToolCalls carries the tool invocations requested by an assistant
	// message, if any. Empty for user/system/tool messages.
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-result message back to the originating call.
	// Only set when Role is "tool".
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolDefinition describes a tool in the catalog declared to the model.
// InputSchema is a JSON-schema object map in the provider's expected shape.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ChatResult is the outcome of a single completion call. Content may be empty
// when the model responds only with tool calls; ToolCalls may be empty when
// the model produces a final natural-language answer.
type ChatResult struct {
	Content   string
	ToolCalls []models.ToolCall
}

// LLMService defines the interface for language model operations: embedding
// generation and chat completions, with or without a declared tool catalog.
// Implementations may use cloud APIs (Anthropic, Gemini) or local models.
type LLMService interface {
	// Embed generates a fixed-dimension embedding vector for the given text.
	// Provider errors are returned as-is; graceful degradation is the
	// embedding service's concern, not the provider's.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Chat generates a completion from the conversation history. The messages
	// slice contains the full context in chronological order.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatWithTools generates a completion with a declared tool catalog.
	// The result carries zero or more tool call requests alongside any
	// natural-language content.
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (*ChatResult, error)

	// HealthCheck verifies the service is operational and can handle requests.
	HealthCheck(ctx context.Context) error

	// GetMode returns the current operational mode of the LLM service.
	GetMode() LLMMode

	// Close releases resources and performs cleanup operations.
	Close() error
}
