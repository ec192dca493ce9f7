package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// indexCounter is the durable allocator for dense vector-index IDs.
type indexCounter struct {
	Key  string
	Next int64
}

const indexCounterKey = "index_id_counter"

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db        *BadgerDB
	logger    arbor.ILogger
	counterMu sync.Mutex
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.Store().Get(id, &doc)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetDocumentBySourceURI resolves a document by its origin. Re-ingestion of
// the same source updates the existing record instead of duplicating it.
func (s *DocumentStorage) GetDocumentBySourceURI(ctx context.Context, sourceURI string) (*models.Document, error) {
	var docs []*models.Document
	err := s.db.Store().Find(&docs, badgerhold.Where("SourceURI").Eq(sourceURI).Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to look up document by source URI: %w", err)
	}
	if len(docs) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return docs[0], nil
}

func (s *DocumentStorage) ListDocuments(ctx context.Context, category string, limit int) ([]*models.Document, error) {
	query := &badgerhold.Query{}
	if category != "" {
		query = badgerhold.Where("Category").Eq(category)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []*models.Document
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

func (s *DocumentStorage) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk ID is required")
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now()
		}
		if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

func (s *DocumentStorage) GetChunkByIndexID(ctx context.Context, indexID int64) (*models.Chunk, error) {
	var chunks []*models.Chunk
	err := s.db.Store().Find(&chunks, badgerhold.Where("IndexID").Eq(indexID).Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to look up chunk by index id: %w", err)
	}
	if len(chunks) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return chunks[0], nil
}

func (s *DocumentStorage) ListChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	err := s.db.Store().Find(&chunks, badgerhold.Where("DocumentID").Eq(documentID).SortBy("Sequence"))
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	return chunks, nil
}

// ListDegradedChunks returns chunks whose stored embedding is the all-zero
// fallback, for the reprocessing sweep.
func (s *DocumentStorage) ListDegradedChunks(ctx context.Context, limit int) ([]*models.Chunk, error) {
	query := badgerhold.Where("ID").Ne("") // Select all
	var all []*models.Chunk
	if err := s.db.Store().Find(&all, query); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}

	degraded := make([]*models.Chunk, 0)
	for _, chunk := range all {
		if chunk.Degraded() {
			degraded = append(degraded, chunk)
			if limit > 0 && len(degraded) >= limit {
				break
			}
		}
	}
	return degraded, nil
}

func (s *DocumentStorage) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	var chunk models.Chunk
	err := s.db.Store().Get(chunkID, &chunk)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get chunk: %w", err)
	}

	chunk.Embedding = embedding
	if err := s.db.Store().Upsert(chunkID, &chunk); err != nil {
		return fmt.Errorf("failed to update chunk embedding: %w", err)
	}
	return nil
}

// DeleteChunksByDocument removes a document's chunk records. Index vectors
// for the dead IDs stop resolving and are dropped at retrieval; the next
// index rebuild removes them physically.
func (s *DocumentStorage) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	err := s.db.Store().DeleteMatching(&models.Chunk{}, badgerhold.Where("DocumentID").Eq(documentID))
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

// NextIndexIDs reserves n consecutive index IDs and returns the first.
// The counter is persisted before the reservation is handed out so IDs are
// never reused across restarts.
func (s *DocumentStorage) NextIndexIDs(ctx context.Context, n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: reservation size must be positive, got %d", interfaces.ErrInvalidArgument, n)
	}

	s.counterMu.Lock()
	defer s.counterMu.Unlock()

	var counter indexCounter
	err := s.db.Store().Get(indexCounterKey, &counter)
	if err == badgerhold.ErrNotFound {
		counter = indexCounter{Key: indexCounterKey, Next: 0}
	} else if err != nil {
		return 0, fmt.Errorf("failed to read index id counter: %w", err)
	}

	first := counter.Next
	counter.Next += int64(n)

	if err := s.db.Store().Upsert(indexCounterKey, &counter); err != nil {
		return 0, fmt.Errorf("failed to persist index id counter: %w", err)
	}

	return first, nil
}
