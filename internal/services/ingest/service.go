package ingest

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
	"github.com/adiuvo-ai/adiuvo/internal/services/chunker"
)

// DefaultConcurrency bounds in-flight embedding calls per document.
const DefaultConcurrency = 5

// Request describes one document to ingest. HTML content is normalized to
// markdown before chunking.
type Request struct {
	SourceURI string
	Content   string
	Category  string
	HTML      bool
}

// Result summarizes one completed ingestion.
type Result struct {
	DocumentID string
	Title      string
	Chunks     int
	Degraded   int
	Duration   time.Duration
}

// Service runs the write path: normalize, chunk, embed, persist, index.
// Re-ingesting a source URI replaces its chunks; the old index entries stop
// resolving and are removed at the next rebuild.
type Service struct {
	chunker     *chunker.Chunker
	embeddings  interfaces.EmbeddingService
	index       interfaces.VectorIndex
	documents   interfaces.DocumentStorage
	concurrency int
	logger      arbor.ILogger
}

// NewService creates an ingestion service. concurrency <= 0 falls back to
// DefaultConcurrency.
func NewService(c *chunker.Chunker, embeddings interfaces.EmbeddingService, index interfaces.VectorIndex, documents interfaces.DocumentStorage, concurrency int, logger arbor.ILogger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		chunker:     c,
		embeddings:  embeddings,
		index:       index,
		documents:   documents,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Ingest processes one document end to end. Cancellation before persistence
// aborts cleanly; once chunks are saved the matching vectors are always
// added to the index in the same call.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	if req.SourceURI == "" {
		return nil, fmt.Errorf("%w: source URI is required", interfaces.ErrInvalidArgument)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is empty", interfaces.ErrInvalidArgument)
	}

	startTime := time.Now()
	content := req.Content

	if req.HTML {
		normalized, err := NormalizeHTML(content)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize HTML from %s: %w", req.SourceURI, err)
		}
		content = normalized
	}

	title := TitleFromMarkdown(content)
	if title == "" {
		title = req.SourceURI
	}

	texts := s.chunker.Split(content)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no content left after normalization for %s", interfaces.ErrInvalidArgument, req.SourceURI)
	}

	doc, err := s.resolveDocument(ctx, req, title, content)
	if err != nil {
		return nil, err
	}

	vectors := s.embedAll(ctx, texts)
	if err := ctx.Err(); err != nil {
		// Nothing persisted yet; the store and index are untouched.
		return nil, fmt.Errorf("ingestion of %s canceled: %w", req.SourceURI, err)
	}

	firstID, err := s.documents.NextIndexIDs(ctx, len(texts))
	if err != nil {
		return nil, fmt.Errorf("failed to reserve index ids: %w", err)
	}

	ids := make([]int64, len(texts))
	chunks := make([]*models.Chunk, len(texts))
	degraded := 0
	for i, text := range texts {
		ids[i] = firstID + int64(i)
		chunks[i] = &models.Chunk{
			ID:         common.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Sequence:   i,
			Text:       text,
			CharLength: len(text),
			Category:   req.Category,
			IndexID:    ids[i],
			Embedding:  vectors[i],
		}
		if interfaces.IsDegraded(vectors[i]) {
			degraded++
		}
	}

	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	if err := s.documents.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to save chunks: %w", err)
	}
	if err := s.index.Add(ctx, vectors, ids); err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}

	result := &Result{
		DocumentID: doc.ID,
		Title:      title,
		Chunks:     len(chunks),
		Degraded:   degraded,
		Duration:   time.Since(startTime),
	}

	s.logger.Info().
		Str("doc_id", doc.ID).
		Str("source_uri", req.SourceURI).
		Str("category", req.Category).
		Int("chunks", result.Chunks).
		Int("degraded", result.Degraded).
		Dur("duration", result.Duration).
		Msg("Document ingested")

	return result, nil
}

// resolveDocument reuses the existing document record for a known source URI
// and clears its previous chunks; otherwise it creates a fresh record.
func (s *Service) resolveDocument(ctx context.Context, req Request, title, content string) (*models.Document, error) {
	existing, err := s.documents.GetDocumentBySourceURI(ctx, req.SourceURI)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}

	if existing != nil {
		if err := s.documents.DeleteChunksByDocument(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to clear previous chunks: %w", err)
		}
		existing.Title = title
		existing.Content = content
		existing.Category = req.Category
		s.logger.Debug().
			Str("doc_id", existing.ID).
			Str("source_uri", req.SourceURI).
			Msg("Re-ingesting known source, previous chunks cleared")
		return existing, nil
	}

	return &models.Document{
		ID:        common.NewDocumentID(),
		SourceURI: req.SourceURI,
		Title:     title,
		Content:   content,
		Category:  req.Category,
	}, nil
}

// embedAll embeds chunk texts with bounded concurrency, preserving input
// order. Individual failures degrade to zero vectors per the embedding
// service's policy.
func (s *Service) embedAll(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			vectors[i] = s.embeddings.Embed(ctx, text)
		}(i, text)
	}
	wg.Wait()

	return vectors
}
