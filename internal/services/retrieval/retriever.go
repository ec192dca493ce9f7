package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// Retriever resolves a natural-language query to the most relevant stored
// chunks. The query is embedded once; index hits whose chunk or document
// records are gone are dropped silently so a lagging index never turns into
// a user-facing error.
type Retriever struct {
	embeddings interfaces.EmbeddingService
	index      interfaces.VectorIndex
	documents  interfaces.DocumentStorage
	logger     arbor.ILogger
}

var _ interfaces.Retriever = (*Retriever)(nil)

// NewRetriever creates a new Retriever instance.
func NewRetriever(embeddings interfaces.EmbeddingService, index interfaces.VectorIndex, documents interfaces.DocumentStorage, logger arbor.ILogger) *Retriever {
	return &Retriever{
		embeddings: embeddings,
		index:      index,
		documents:  documents,
		logger:     logger,
	}
}

// Retrieve returns up to topK chunks relevant to the query, optionally
// restricted to a category. A degraded query embedding yields an empty
// result rather than searching with a meaningless vector.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, category string) ([]interfaces.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", interfaces.ErrInvalidArgument, topK)
	}

	queryVector := r.embeddings.Embed(ctx, query)
	if interfaces.IsDegraded(queryVector) {
		r.logger.Warn().
			Int("query_length", len(query)).
			Msg("Query embedding degraded, returning no results")
		return []interfaces.RetrievedChunk{}, nil
	}

	// Over-fetch when filtering by category so the post-filter can still
	// fill topK from mixed-category neighborhoods.
	k := topK
	if category != "" {
		k = topK * 3
	}

	results, err := r.index.Search(ctx, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	retrieved := make([]interfaces.RetrievedChunk, 0, topK)
	dropped := 0
	for _, result := range results {
		if len(retrieved) >= topK {
			break
		}

		chunk, err := r.documents.GetChunkByIndexID(ctx, result.ID)
		if errors.Is(err, interfaces.ErrNotFound) {
			// Stale index entry: the chunk was re-ingested or deleted since
			// the last rebuild.
			dropped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve index id %d: %w", result.ID, err)
		}

		if category != "" && chunk.Category != category {
			continue
		}

		doc, err := r.documents.GetDocument(ctx, chunk.DocumentID)
		if errors.Is(err, interfaces.ErrNotFound) {
			dropped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve document %s: %w", chunk.DocumentID, err)
		}

		retrieved = append(retrieved, interfaces.RetrievedChunk{
			DocumentID: doc.ID,
			ChunkID:    chunk.ID,
			Text:       chunk.Text,
			Category:   chunk.Category,
			SourceURI:  doc.SourceURI,
			Score:      result.Score,
		})
	}

	r.logger.Debug().
		Int("requested", topK).
		Int("returned", len(retrieved)).
		Int("dropped_stale", dropped).
		Str("category", category).
		Msg("Retrieved chunks for query")

	return retrieved, nil
}
