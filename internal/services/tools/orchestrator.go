package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/common"
	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
	"github.com/adiuvo-ai/adiuvo/internal/services/answer"
)

const chatSystemPrompt = "You are a friendly and helpful assistant with expertise in various government services. " +
	"You can help with DMV, Health, Education, and Tax-related queries. " +
	"Use the available tools to look up official links, answer questions from ingested documents, and fill out forms. " +
	"Your goal is to simplify processes and make things clear."

// DefaultMaxSteps bounds the tool-call loop per user turn.
const DefaultMaxSteps = 6

// Orchestrator runs the conversation loop for one user turn: declare the
// tool catalog to the model, dispatch requested tool calls, feed results
// back, and repeat until a final answer is produced or the step budget runs
// out. Turns within the same session are serialized; every message is
// appended durably to the conversation log as the turn progresses.
type Orchestrator struct {
	llm           interfaces.LLMService
	registry      *Registry
	conversations interfaces.ConversationStorage
	maxSteps      int
	logger        arbor.ILogger

	locks sync.Map // session key -> *sync.Mutex
}

var _ interfaces.ToolOrchestrator = (*Orchestrator)(nil)

// NewOrchestrator creates a new orchestrator. maxSteps <= 0 falls back to
// DefaultMaxSteps.
func NewOrchestrator(llm interfaces.LLMService, registry *Registry, conversations interfaces.ConversationStorage, maxSteps int, logger arbor.ILogger) *Orchestrator {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Orchestrator{
		llm:           llm,
		registry:      registry,
		conversations: conversations,
		maxSteps:      maxSteps,
		logger:        logger,
	}
}

// HandleTurn processes one user message and returns the final user-facing
// answer. Provider failures degrade to the fixed fallback answer rather than
// aborting the conversation.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, sessionID, userMessage string) (string, error) {
	if userID == "" || sessionID == "" {
		return "", fmt.Errorf("%w: user and session IDs are required", interfaces.ErrInvalidArgument)
	}
	if userMessage == "" {
		return "", fmt.Errorf("%w: user message cannot be empty", interfaces.ErrInvalidArgument)
	}

	// One turn at a time per session keeps the log's total order intact.
	mu := o.sessionLock(userID, sessionID)
	mu.Lock()
	defer mu.Unlock()

	startTime := time.Now()
	session := interfaces.ToolSession{UserID: userID, SessionID: sessionID}

	if err := o.append(ctx, session, &models.ConversationMessage{Role: "user", Content: userMessage}); err != nil {
		return "", err
	}

	history, err := o.conversations.History(ctx, userID, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load conversation history: %w", err)
	}

	messages := make([]interfaces.Message, 0, len(history)+1)
	messages = append(messages, interfaces.Message{Role: "system", Content: chatSystemPrompt})
	for _, msg := range history {
		messages = append(messages, toProviderMessage(msg))
	}

	definitions := o.registry.Definitions()

	var lastContent string
	for step := 1; step <= o.maxSteps; step++ {
		result, err := o.llm.ChatWithTools(ctx, messages, definitions)
		if err != nil {
			o.logger.Error().
				Err(err).
				Int("step", step).
				Str("session_id", sessionID).
				Msg("Model call failed, returning fallback answer")
			return o.finish(ctx, session, answer.FallbackAnswer)
		}

		assistantMsg := &models.ConversationMessage{
			Role:      "assistant",
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		}
		if err := o.append(ctx, session, assistantMsg); err != nil {
			return "", err
		}
		messages = append(messages, toProviderMessage(assistantMsg))

		// A response without tool calls is the final answer.
		if len(result.ToolCalls) == 0 {
			o.logger.Debug().
				Int("steps", step).
				Dur("duration", time.Since(startTime)).
				Str("session_id", sessionID).
				Msg("Turn completed with model answer")
			return result.Content, nil
		}

		var userFacing string
		for _, call := range result.ToolCalls {
			content := o.dispatch(ctx, session, call)

			toolMsg := &models.ConversationMessage{
				Role:       "tool",
				Content:    content.Content,
				ToolCallID: call.ID,
			}
			if err := o.append(ctx, session, toolMsg); err != nil {
				return "", err
			}
			messages = append(messages, toProviderMessage(toolMsg))

			if content.UserFacing && userFacing == "" {
				userFacing = content.Content
			}
		}

		// A user-facing tool result ends the turn without another model
		// round trip.
		if userFacing != "" {
			o.logger.Debug().
				Int("steps", step).
				Dur("duration", time.Since(startTime)).
				Str("session_id", sessionID).
				Msg("Turn completed with tool result")
			return o.finish(ctx, session, userFacing)
		}

		lastContent = result.Content
	}

	// Budget exhausted: degrade to the last available model content.
	o.logger.Warn().
		Int("max_steps", o.maxSteps).
		Str("session_id", sessionID).
		Msg("Tool loop step budget exhausted, returning degraded response")

	if lastContent == "" {
		lastContent = answer.FallbackAnswer
	}
	return o.finish(ctx, session, lastContent)
}

// dispatch runs one tool call. Failures never abort the turn: an unknown
// tool is logged and reported back to the model, and handler errors become
// error-content results.
func (o *Orchestrator) dispatch(ctx context.Context, session interfaces.ToolSession, call models.ToolCall) *interfaces.ToolResult {
	result, err := o.registry.Dispatch(ctx, session, call)
	if errors.Is(err, interfaces.ErrUnknownTool) {
		o.logger.Warn().
			Str("tool", call.Name).
			Str("call_id", call.ID).
			Msg("Model requested unregistered tool, skipping")
		return &interfaces.ToolResult{Content: fmt.Sprintf("Error: tool %q is not available.", call.Name)}
	}
	if errors.Is(err, interfaces.ErrMalformedToolArguments) {
		o.logger.Warn().
			Err(err).
			Str("tool", call.Name).
			Msg("Tool arguments failed to parse or validate")
		return &interfaces.ToolResult{Content: fmt.Sprintf("Error: invalid arguments for tool %q: %v", call.Name, err)}
	}
	if err != nil {
		o.logger.Error().
			Err(err).
			Str("tool", call.Name).
			Msg("Tool handler failed")
		return &interfaces.ToolResult{Content: fmt.Sprintf("Error: %v", err)}
	}

	o.logger.Debug().
		Str("tool", call.Name).
		Bool("user_facing", result.UserFacing).
		Int("result_length", len(result.Content)).
		Msg("Dispatched tool call")

	return result
}

// finish records the final assistant answer in the conversation log and
// returns it.
func (o *Orchestrator) finish(ctx context.Context, session interfaces.ToolSession, content string) (string, error) {
	if err := o.append(ctx, session, &models.ConversationMessage{Role: "assistant", Content: content}); err != nil {
		return "", err
	}
	return content, nil
}

// append persists one conversation message, filling in identity fields.
func (o *Orchestrator) append(ctx context.Context, session interfaces.ToolSession, msg *models.ConversationMessage) error {
	msg.ID = common.NewMessageID()
	msg.UserID = session.UserID
	msg.SessionID = session.SessionID
	msg.CreatedAt = time.Now()

	if err := o.conversations.Append(ctx, msg); err != nil {
		return fmt.Errorf("failed to append conversation message: %w", err)
	}
	return nil
}

// toProviderMessage converts a stored conversation message to the
// provider-neutral form used for replay.
func toProviderMessage(m *models.ConversationMessage) interfaces.Message {
	return interfaces.Message{
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
	}
}

func (o *Orchestrator) sessionLock(userID, sessionID string) *sync.Mutex {
	key := userID + "/" + sessionID
	lock, _ := o.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
