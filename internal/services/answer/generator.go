package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// FallbackAnswer is returned whenever the completion provider fails. Callers
// can rely on Generate never propagating provider errors.
const FallbackAnswer = "I couldn't find an answer based on the provided documents."

const defaultSystemPrompt = "You are a helpful assistant that answers questions based on provided context documents."

// categoryPrompts maps a service category to a specialized system prompt.
// Unknown categories fall back to the default prompt.
var categoryPrompts = map[string]string{
	"dmv":    "You are a helpful assistant specializing in DMV-related queries, forms, and processes.",
	"tax":    "You are an expert assistant in tax regulations, returns, and compliance.",
	"health": "You provide assistance with healthcare policies, benefits, and related services.",
}

// Generator produces context-augmented answers from retrieved chunks.
type Generator struct {
	llmService interfaces.LLMService
	logger     arbor.ILogger
}

var _ interfaces.AnswerGenerator = (*Generator)(nil)

// NewGenerator creates a new answer generator.
func NewGenerator(llmService interfaces.LLMService, logger arbor.ILogger) *Generator {
	return &Generator{
		llmService: llmService,
		logger:     logger,
	}
}

// SystemPromptFor returns the system prompt for a category, falling back to
// the general-purpose prompt for unknown categories.
func SystemPromptFor(category string) string {
	if prompt, ok := categoryPrompts[strings.ToLower(category)]; ok {
		return prompt
	}
	return defaultSystemPrompt
}

// Generate produces an answer to the query grounded in the supplied context
// chunks. Provider failures degrade to the fixed fallback answer; this method
// never returns an error.
func (g *Generator) Generate(ctx context.Context, query string, contextChunks []string, category string) string {
	contextStr := strings.Join(contextChunks, " ")
	augmentedPrompt := fmt.Sprintf("Based on the following context: '%s', answer the question: '%s'", contextStr, query)

	messages := []interfaces.Message{
		{Role: "system", Content: SystemPromptFor(category)},
		{Role: "user", Content: augmentedPrompt},
	}

	response, err := g.llmService.Chat(ctx, messages)
	if err != nil {
		g.logger.Warn().
			Err(err).
			Str("category", category).
			Int("context_chunks", len(contextChunks)).
			Msg("Answer generation failed, returning fallback answer")
		return FallbackAnswer
	}

	g.logger.Debug().
		Str("category", category).
		Int("context_chunks", len(contextChunks)).
		Int("answer_length", len(response)).
		Msg("Generated answer from context")

	return response
}
