package embeddings

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// Service implements the EmbeddingService interface on top of an LLM
// provider. Provider failures never propagate as errors: the affected text
// gets a zero vector of the configured dimensionality, is logged, and the
// chunk is picked up later by the reprocessing sweep.
type Service struct {
	llmService interfaces.LLMService
	dimension  int
	modelName  string
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

var _ interfaces.EmbeddingService = (*Service)(nil)

// NewService creates a new embedding service. ratePerSecond bounds outbound
// provider calls; zero or negative disables the limiter.
func NewService(llmService interfaces.LLMService, dimension int, modelName string, ratePerSecond float64, logger arbor.ILogger) *Service {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}

	return &Service{
		llmService: llmService,
		dimension:  dimension,
		modelName:  modelName,
		limiter:    limiter,
		logger:     logger,
	}
}

// Embed returns an embedding vector for the given text. On any provider
// failure it returns the all-zero fallback vector instead of an error.
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn().
				Err(err).
				Int("text_length", len(text)).
				Msg("Embedding rate limit wait aborted, emitting zero vector")
			return make([]float32, s.dimension)
		}
	}

	start := time.Now()
	embedding, err := s.llmService.Embed(ctx, text)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("text_length", len(text)).
			Dur("duration", time.Since(start)).
			Msg("Embedding generation failed, emitting zero vector")
		return make([]float32, s.dimension)
	}

	if len(embedding) != s.dimension {
		s.logger.Warn().
			Int("expected_dim", s.dimension).
			Int("actual_dim", len(embedding)).
			Msg("Embedding dimension mismatch, emitting zero vector")
		return make([]float32, s.dimension)
	}

	s.logger.Debug().
		Int("text_length", len(text)).
		Int("embedding_dim", len(embedding)).
		Dur("duration", time.Since(start)).
		Msg("Generated embedding")

	return embedding
}

// EmbedBatch embeds texts sequentially, preserving input order. The result
// always has one vector per input text; failed entries degrade to zero
// vectors individually without aborting the batch.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	degraded := 0
	for i, text := range texts {
		vectors[i] = s.Embed(ctx, text)
		if interfaces.IsDegraded(vectors[i]) {
			degraded++
		}
	}

	if degraded > 0 {
		s.logger.Warn().
			Int("batch_size", len(texts)).
			Int("degraded", degraded).
			Msg("Batch embedding completed with degraded vectors")
	}

	return vectors
}

// Dimension returns the configured embedding dimensionality.
func (s *Service) Dimension() int {
	return s.dimension
}

// ModelName returns the embedding model identifier.
func (s *Service) ModelName() string {
	return s.modelName
}

// IsAvailable reports whether the backing provider is reachable.
func (s *Service) IsAvailable(ctx context.Context) bool {
	return s.llmService.HealthCheck(ctx) == nil
}
