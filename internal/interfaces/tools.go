package interfaces

import "context"

// ToolSession identifies the conversation a tool call executes within. Tool
// handlers that keep per-session state (form filling) key it off this pair.
type ToolSession struct {
	UserID    string
	SessionID string
}

// ToolResult is the outcome of one tool dispatch. A UserFacing result is
// already phrased for the end user; the orchestrator short-circuits the loop
// and returns it directly instead of another model round trip.
type ToolResult struct {
	Content    string
	UserFacing bool
}

// ToolOrchestrator runs the model/tool conversation loop for one user turn
// and returns the final user-facing answer. Turns within the same session
// are serialized; the conversation log is appended durably as the turn
// progresses.
type ToolOrchestrator interface {
	HandleTurn(ctx context.Context, userID, sessionID, userMessage string) (string, error)
}
