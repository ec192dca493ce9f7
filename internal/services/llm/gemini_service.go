package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/adiuvo-ai/adiuvo/internal/common"
	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// GeminiService implements the LLMService interface using Google Gemini.
// It provides embedding generation for the whole pipeline and serves as the
// alternate chat provider.
type GeminiService struct {
	llmConfig  *common.LLMConfig
	chatConfig *common.GeminiConfig
	logger     arbor.ILogger
	client     *genai.Client
	timeout    time.Duration
}

var _ interfaces.LLMService = (*GeminiService)(nil)

// NewGeminiService creates a new Gemini LLM service instance.
func NewGeminiService(config *common.Config, logger arbor.ILogger) (*GeminiService, error) {
	if config.Gemini.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set via GEMINI_API_KEY or gemini.api_key in config)")
	}

	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "gemini-embedding-001"
	}
	if config.Gemini.ChatModel == "" {
		config.Gemini.ChatModel = "gemini-2.0-flash"
	}

	timeout, err := time.ParseDuration(config.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.LLM.Timeout, err)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		llmConfig:  &config.LLM,
		chatConfig: &config.Gemini,
		logger:     logger,
		client:     client,
		timeout:    timeout,
	}

	logger.Info().
		Str("embed_model", config.LLM.EmbedModel).
		Str("chat_model", config.Gemini.ChatModel).
		Int("embed_dimension", config.LLM.EmbedDimension).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized successfully")

	return service, nil
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format, maintaining chronological ordering. System messages are extracted
// separately for SystemInstruction. Assistant tool calls are replayed as
// function-call parts, and tool messages become function-response parts.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
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

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			parts := make([]*genai.Part, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				var args map[string]any
				if len(call.Arguments) > 0 {
					if err := json.Unmarshal(call.Arguments, &args); err != nil {
						return nil, "", fmt.Errorf("failed to decode tool call arguments for %s: %w", call.Name, err)
					}
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   call.ID,
						Name: call.Name,
						Args: args,
					},
				})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: parts,
			})
		case "tool":
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Response: map[string]any{"result": msg.Content},
					},
				}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		}
	}

	return contents, systemText, nil
}

// Embed generates an embedding vector with the configured output
// dimensionality for the given text.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("text_length", len(text)).
		Msg("Starting embedding generation")

	outputDim := int32(s.llmConfig.EmbedDimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := s.client.Models.EmbedContent(timeoutCtx, s.llmConfig.EmbedModel, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("text_length", len(text)).
			Msg("Embedding generation failed")
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != s.llmConfig.EmbedDimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.llmConfig.EmbedDimension, len(embedding))
	}

	s.logger.Debug().
		Int("text_length", len(text)).
		Int("embedding_dim", len(embedding)).
		Dur("duration", time.Since(startTime)).
		Msg("Embedding generation completed successfully")

	return embedding, nil
}

// Chat generates a completion response based on the conversation history.
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Gemini chat completion")

	result, err := s.generateCompletion(timeoutCtx, messages, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Gemini chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if result.Content == "" {
		return "", fmt.Errorf("no response generated from chat model")
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(result.Content)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini chat completion completed successfully")

	return result.Content, nil
}

// ChatWithTools generates a completion with a declared tool catalog using
// Gemini function calling.
func (s *GeminiService) ChatWithTools(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition) (*interfaces.ChatResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.generateCompletion(timeoutCtx, messages, tools)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Gemini tool completion failed")
		return nil, fmt.Errorf("tool completion failed: %w", err)
	}

	return result, nil
}

// generateCompletion encapsulates the Gemini chat completion logic for both
// plain and tool-enabled calls.
func (s *GeminiService) generateCompletion(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition) (*interfaces.ChatResult, error) {
	geminiContents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{}

	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	if len(tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, tool := range tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:                 tool.Name,
				Description:          tool.Description,
				ParametersJsonSchema: tool.InputSchema,
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.chatConfig.ChatModel, geminiContents, config)
	if err != nil {
		return nil, fmt.Errorf("chat generation failed: %w", err)
	}

	var content strings.Builder
	var toolCalls []models.ToolCall
	if resp != nil && len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					content.WriteString(part.Text)
				}
				if part.FunctionCall != nil {
					args, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						return nil, fmt.Errorf("failed to encode function call arguments: %w", err)
					}
					id := part.FunctionCall.ID
					if id == "" {
						// Gemini does not always assign call IDs; the
						// conversation log needs one to pair results.
						id = "call_" + uuid.New().String()
					}
					toolCalls = append(toolCalls, models.ToolCall{
						ID:        id,
						Name:      part.FunctionCall.Name,
						Arguments: args,
					})
				}
			}
		}
	}

	if content.Len() == 0 && len(toolCalls) == 0 {
		return nil, fmt.Errorf("no response generated from chat model")
	}

	return &interfaces.ChatResult{
		Content:   content.String(),
		ToolCalls: toolCalls,
	}, nil
}

// HealthCheck verifies the Gemini service is operational by probing both the
// embedding and chat models.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Gemini LLM service health check")

	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	embedding, err := s.Embed(healthCheckCtx, "health check")
	if err != nil {
		return fmt.Errorf("embedding model health check failed: %w", err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding health check returned empty vector")
	}

	response, err := s.Chat(healthCheckCtx, []interfaces.Message{
		{Role: "user", Content: "ping"},
	})
	if err != nil {
		return fmt.Errorf("chat model health check failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("chat health check returned empty response")
	}

	s.logger.Info().
		Str("embed_model", s.llmConfig.EmbedModel).
		Str("chat_model", s.chatConfig.ChatModel).
		Msg("Gemini LLM service health check passed")

	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *GeminiService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// Close releases resources and performs cleanup operations.
func (s *GeminiService) Close() error {
	s.logger.Info().Msg("Closing Gemini LLM service")
	s.client = nil
	return nil
}
