package interfaces

import "context"

// EmbeddingService converts text into fixed-length vectors with a graceful
// failure policy: provider outages yield zero vectors of the configured
// dimensionality instead of errors, so one failed chunk never aborts an
// ingestion batch. Callers detect degraded output with IsDegraded.
type EmbeddingService interface {
	// Embed returns a vector of Dimension() floats for the given text.
	// Never returns an error for provider failures; the returned vector is
	// all-zero in that case and the failure is logged.
	Embed(ctx context.Context, text string) []float32

	// EmbedBatch embeds texts preserving input order. The result always has
	// len(texts) entries; individual failures degrade to zero vectors.
	EmbedBatch(ctx context.Context, texts []string) [][]float32

	// Dimension returns the configured embedding dimensionality.
	Dimension() int

	// ModelName returns the embedding model identifier.
	ModelName() string

	// IsAvailable reports whether the backing provider is reachable.
	IsAvailable(ctx context.Context) bool
}

// IsDegraded reports whether an embedding is the all-zero fallback vector
// produced when the provider call failed.
func IsDegraded(vector []float32) bool {
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}
