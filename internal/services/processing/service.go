package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// Stats summarizes one reprocessing run.
type Stats struct {
	Scanned       int
	Recovered     int
	StillDegraded int
	Rebuilt       bool
	Duration      time.Duration
}

// Service re-embeds chunks that carry the zero-vector fallback from an
// earlier provider outage, then rebuilds the index so recovered vectors
// become searchable and entries for deleted chunks are physically removed.
type Service struct {
	documents  interfaces.DocumentStorage
	embeddings interfaces.EmbeddingService
	index      interfaces.VectorIndex
	limit      int
	logger     arbor.ILogger
}

// NewService creates a reprocessing service. limit bounds chunks re-embedded
// per run; zero or negative means no bound.
func NewService(documents interfaces.DocumentStorage, embeddings interfaces.EmbeddingService, index interfaces.VectorIndex, limit int, logger arbor.ILogger) *Service {
	return &Service{
		documents:  documents,
		embeddings: embeddings,
		index:      index,
		limit:      limit,
		logger:     logger,
	}
}

// ProcessDegraded runs one sweep.
func (s *Service) ProcessDegraded(ctx context.Context) (*Stats, error) {
	startTime := time.Now()

	degraded, err := s.documents.ListDegradedChunks(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list degraded chunks: %w", err)
	}

	stats := &Stats{Scanned: len(degraded)}

	for _, chunk := range degraded {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reprocessing canceled: %w", err)
		}

		vector := s.embeddings.Embed(ctx, chunk.Text)
		if interfaces.IsDegraded(vector) {
			stats.StillDegraded++
			continue
		}

		if err := s.documents.UpdateChunkEmbedding(ctx, chunk.ID, vector); err != nil {
			return nil, fmt.Errorf("failed to update embedding for chunk %s: %w", chunk.ID, err)
		}
		stats.Recovered++
	}

	vectors, ids, err := s.liveEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	// Rebuild when a recovered vector must become searchable, or when the
	// index carries entries for chunks that no longer exist in the store.
	if stats.Recovered > 0 || s.index.Len() != len(ids) {
		if err := s.index.Rebuild(ctx, vectors, ids); err != nil {
			return nil, fmt.Errorf("failed to rebuild index: %w", err)
		}
		stats.Rebuilt = true
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info().
		Int("scanned", stats.Scanned).
		Int("recovered", stats.Recovered).
		Int("still_degraded", stats.StillDegraded).
		Bool("rebuilt", stats.Rebuilt).
		Dur("duration", stats.Duration).
		Msg("Degraded embedding sweep completed")

	return stats, nil
}

// liveEmbeddings gathers the embeddings and index IDs of every chunk
// currently in the store. Index entries outside this set belong to deleted
// chunks and disappear on the next rebuild.
func (s *Service) liveEmbeddings(ctx context.Context) ([][]float32, []int64, error) {
	docs, err := s.documents.ListDocuments(ctx, "", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list documents for rebuild: %w", err)
	}

	var vectors [][]float32
	var ids []int64
	for _, doc := range docs {
		chunks, err := s.documents.ListChunksByDocument(ctx, doc.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list chunks for %s: %w", doc.ID, err)
		}
		for _, chunk := range chunks {
			vectors = append(vectors, chunk.Embedding)
			ids = append(ids, chunk.IndexID)
		}
	}
	return vectors, ids, nil
}
