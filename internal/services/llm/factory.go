package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/common"
	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// NewLLMService creates the chat provider and the embedding provider based
// on configuration. The chat provider is selected by llm.provider; the
// embedding provider is always Gemini, since Anthropic does not expose an
// embeddings API. When Gemini is also the chat provider the same service
// instance serves both roles.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (chat interfaces.LLMService, embedder interfaces.LLMService, err error) {
	if cfg.LLM.Provider != common.LLMProviderClaude && cfg.LLM.Provider != common.LLMProviderGemini {
		return nil, nil, fmt.Errorf("invalid LLM provider '%s': must be 'claude' or 'gemini'", cfg.LLM.Provider)
	}

	logger.Info().Str("provider", string(cfg.LLM.Provider)).Msg("Initializing LLM service")

	gemini, err := NewGeminiService(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini service: %w", err)
	}

	switch cfg.LLM.Provider {
	case common.LLMProviderClaude:
		claude, err := NewClaudeService(&cfg.Claude, logger)
		if err != nil {
			gemini.Close()
			return nil, nil, fmt.Errorf("failed to create Claude service: %w", err)
		}
		return claude, gemini, nil

	default:
		return gemini, gemini, nil
	}
}
