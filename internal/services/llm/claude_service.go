package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/common"
	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// ClaudeService implements the LLMService interface using the Anthropic API.
// It provides chat completions with native tool-use support. Embeddings are
// not offered by this provider; the embedding pipeline always runs through
// the Gemini service.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    *anthropic.Client
	timeout   time.Duration
	maxTokens int
}

var _ interfaces.LLMService = (*ClaudeService)(nil)

// NewClaudeService creates a new Claude LLM service instance.
func NewClaudeService(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude service (set via ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-sonnet-4-20250514"
	}

	timeout, err := time.ParseDuration(claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", claudeConfig.Timeout, err)
	}

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    &client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Float32("temperature", claudeConfig.Temperature).
		Int("max_tokens", maxTokens).
		Msg("Claude LLM service initialized successfully")

	return service, nil
}

// convertMessagesToClaude converts []interfaces.Message to Claude MessageParam
// format, maintaining chronological ordering. System messages are extracted
// separately for the System parameter. Assistant messages that carried tool
// calls are reconstructed as tool_use blocks, and tool messages become
// tool_result blocks inside a user message, which is the shape the API
// requires for the follow-up call.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Arguments, call.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(blocks...))
		case "tool":
			// The API requires every tool_use from the preceding assistant
			// message to be answered in the single next user message, so a run
			// of tool results collapses into one message with multiple
			// tool_result blocks.
			var results []anthropic.ContentBlockParamUnion
			for ; i < len(messages) && messages[i].Role == "tool"; i++ {
				results = append(results, anthropic.NewToolResultBlock(messages[i].ToolCallID, messages[i].Content, false))
			}
			i--
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(results...))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return claudeMessages, systemText, nil
}

// convertToolsToClaude converts the registry's tool catalog into the
// provider's tool parameter shape.
func convertToolsToClaude(tools []interfaces.ToolDefinition) []anthropic.ToolUnionParam {
	params := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		params = append(params, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.InputSchema["properties"],
					Required:   stringSlice(tool.InputSchema["required"]),
				},
			},
		})
	}
	return params
}

// stringSlice coerces a JSON-schema "required" value into []string. Schema
// maps built in Go carry []string; maps decoded from JSON carry []any.
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Embed is not supported by the Anthropic provider. Embedding generation
// always runs through the Gemini service regardless of the chat provider.
func (s *ClaudeService) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding generation is not supported by the Claude provider")
}

// Chat generates a completion response based on the conversation history.
func (s *ClaudeService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Claude chat completion")

	result, err := s.generateCompletion(timeoutCtx, messages, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Claude chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if result.Content == "" {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(result.Content)).
		Dur("duration", time.Since(startTime)).
		Msg("Claude chat completion completed successfully")

	return result.Content, nil
}

// ChatWithTools generates a completion with a declared tool catalog. Tool
// invocations come back as structured tool_use blocks, so no text parsing of
// the model output is involved.
func (s *ClaudeService) ChatWithTools(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition) (*interfaces.ChatResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("tool_count", len(tools)).
		Msg("Starting Claude tool completion")

	result, err := s.generateCompletion(timeoutCtx, messages, tools)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Claude tool completion failed")
		return nil, fmt.Errorf("tool completion failed: %w", err)
	}

	s.logger.Debug().
		Int("tool_calls", len(result.ToolCalls)).
		Int("response_length", len(result.Content)).
		Dur("duration", time.Since(startTime)).
		Msg("Claude tool completion completed successfully")

	return result, nil
}

// generateCompletion encapsulates the Claude API call for both plain chat and
// tool-enabled completions.
func (s *ClaudeService) generateCompletion(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition) (*interfaces.ChatResult, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages to Claude format: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}

	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	if len(tools) > 0 {
		params.Tools = convertToolsToClaude(tools)
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var content strings.Builder
	var toolCalls []models.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, models.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: json.RawMessage(block.Input),
			})
		}
	}

	if content.Len() == 0 && len(toolCalls) == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	return &interfaces.ChatResult{
		Content:   content.String(),
		ToolCalls: toolCalls,
	}, nil
}

// HealthCheck verifies the Claude service is operational.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Claude LLM service health check")

	if s.client == nil {
		return fmt.Errorf("Claude client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Chat(healthCheckCtx, []interfaces.Message{
		{Role: "user", Content: "ping"},
	})
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("Claude health check returned empty response")
	}

	s.logger.Debug().
		Str("model", s.config.Model).
		Msg("Claude LLM service health check passed")

	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *ClaudeService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// Close releases resources and performs cleanup operations.
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude LLM service")
	s.client = nil
	return nil
}
