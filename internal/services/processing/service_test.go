package processing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
	"github.com/adiuvo-ai/adiuvo/internal/services/vectorindex"
)

// flakyEmbeddings fails for texts in failing, succeeds otherwise.
type flakyEmbeddings struct {
	dimension int
	failing   map[string]bool
}

func (f *flakyEmbeddings) Embed(ctx context.Context, text string) []float32 {
	vec := make([]float32, f.dimension)
	if f.failing[text] {
		return vec
	}
	vec[0] = 1
	vec[1] = float32(len(text) % 5)
	return vec
}

func (f *flakyEmbeddings) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.Embed(ctx, text)
	}
	return out
}

func (f *flakyEmbeddings) Dimension() int                       { return f.dimension }
func (f *flakyEmbeddings) ModelName() string                    { return "flaky-embed" }
func (f *flakyEmbeddings) IsAvailable(ctx context.Context) bool { return true }

// sweepStorage is the in-memory DocumentStorage used by sweep tests.
type sweepStorage struct {
	documents map[string]*models.Document
	chunks    map[string]*models.Chunk
}

func newSweepStorage() *sweepStorage {
	return &sweepStorage{
		documents: map[string]*models.Document{},
		chunks:    map[string]*models.Chunk{},
	}
}

func (s *sweepStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	s.documents[doc.ID] = doc
	return nil
}

func (s *sweepStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := s.documents[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return doc, nil
}

func (s *sweepStorage) GetDocumentBySourceURI(ctx context.Context, sourceURI string) (*models.Document, error) {
	for _, doc := range s.documents {
		if doc.SourceURI == sourceURI {
			return doc, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *sweepStorage) ListDocuments(ctx context.Context, category string, limit int) ([]*models.Document, error) {
	var out []*models.Document
	for _, doc := range s.documents {
		out = append(out, doc)
	}
	return out, nil
}

func (s *sweepStorage) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

func (s *sweepStorage) GetChunkByIndexID(ctx context.Context, indexID int64) (*models.Chunk, error) {
	for _, chunk := range s.chunks {
		if chunk.IndexID == indexID {
			return chunk, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *sweepStorage) ListChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	var out []*models.Chunk
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (s *sweepStorage) ListDegradedChunks(ctx context.Context, limit int) ([]*models.Chunk, error) {
	var out []*models.Chunk
	for _, chunk := range s.chunks {
		if interfaces.IsDegraded(chunk.Embedding) {
			out = append(out, chunk)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *sweepStorage) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	chunk, ok := s.chunks[chunkID]
	if !ok {
		return interfaces.ErrNotFound
	}
	chunk.Embedding = embedding
	return nil
}

func (s *sweepStorage) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	for id, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			delete(s.chunks, id)
		}
	}
	return nil
}

func (s *sweepStorage) NextIndexIDs(ctx context.Context, n int) (int64, error) {
	return 0, nil
}

func setupSweep(t *testing.T) (*Service, *sweepStorage, *flakyEmbeddings, interfaces.VectorIndex) {
	t.Helper()

	index, err := vectorindex.Load(filepath.Join(t.TempDir(), "index.bin"), 3, arbor.NewLogger())
	require.NoError(t, err)

	storage := newSweepStorage()
	embeddings := &flakyEmbeddings{dimension: 3, failing: map[string]bool{}}
	service := NewService(storage, embeddings, index, 0, arbor.NewLogger())

	return service, storage, embeddings, index
}

func seedChunk(t *testing.T, storage *sweepStorage, id string, indexID int64, text string, embedding []float32) {
	t.Helper()
	require.NoError(t, storage.SaveChunks(context.Background(), []*models.Chunk{{
		ID:         id,
		DocumentID: "doc_1",
		Text:       text,
		IndexID:    indexID,
		Embedding:  embedding,
	}}))
}

func TestProcessDegraded_RecoversZeroVectors(t *testing.T) {
	service, storage, _, index := setupSweep(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveDocument(ctx, &models.Document{ID: "doc_1"}))
	seedChunk(t, storage, "chunk_doc_1_0", 0, "healthy chunk", []float32{1, 0, 0})
	seedChunk(t, storage, "chunk_doc_1_1", 1, "recoverable chunk", make([]float32, 3))
	require.NoError(t, index.Add(ctx, [][]float32{{1, 0, 0}, {0, 0, 0}}, []int64{0, 1}))

	stats, err := service.ProcessDegraded(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Recovered)
	assert.Zero(t, stats.StillDegraded)
	assert.True(t, stats.Rebuilt)

	recovered := storage.chunks["chunk_doc_1_1"]
	assert.False(t, interfaces.IsDegraded(recovered.Embedding))

	// The recovered vector is now searchable.
	results, err := index.Search(ctx, recovered.Embedding, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)
	t.Log("✅ Degraded chunk recovered and searchable after rebuild")
}

func TestProcessDegraded_KeepsStillFailingChunks(t *testing.T) {
	service, storage, embeddings, index := setupSweep(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveDocument(ctx, &models.Document{ID: "doc_1"}))
	seedChunk(t, storage, "chunk_doc_1_0", 0, "still failing", make([]float32, 3))
	require.NoError(t, index.Add(ctx, [][]float32{{0, 0, 0}}, []int64{0}))
	embeddings.failing["still failing"] = true

	stats, err := service.ProcessDegraded(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Scanned)
	assert.Zero(t, stats.Recovered)
	assert.Equal(t, 1, stats.StillDegraded)
	assert.False(t, stats.Rebuilt, "no rebuild when nothing recovered")

	// The chunk stays degraded and gets picked up by the next sweep.
	degraded, err := storage.ListDegradedChunks(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, degraded, 1)
}

func TestProcessDegraded_RebuildDropsStaleIndexEntries(t *testing.T) {
	service, storage, _, index := setupSweep(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveDocument(ctx, &models.Document{ID: "doc_1"}))
	seedChunk(t, storage, "chunk_doc_1_0", 0, "kept chunk", []float32{1, 0, 0})
	seedChunk(t, storage, "chunk_doc_1_1", 1, "recoverable chunk", make([]float32, 3))

	// Index id 7 belongs to a chunk deleted by a re-ingest.
	require.NoError(t, index.Add(ctx, [][]float32{{1, 0, 0}, {0, 0, 0}, {0, 1, 0}}, []int64{0, 1, 7}))
	require.Equal(t, 3, index.Len())

	stats, err := service.ProcessDegraded(ctx)
	require.NoError(t, err)
	require.True(t, stats.Rebuilt)

	assert.Equal(t, 2, index.Len(), "stale entry removed by rebuild")
	t.Log("✅ Rebuild pruned the orphaned index entry")
}

func TestProcessDegraded_PrunesOrphansWithoutRecovery(t *testing.T) {
	service, storage, _, index := setupSweep(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveDocument(ctx, &models.Document{ID: "doc_1"}))
	seedChunk(t, storage, "chunk_doc_1_0", 0, "kept chunk", []float32{1, 0, 0})

	// Index id 7 belongs to a chunk deleted by a re-ingest; no chunk is
	// degraded, so the sweep has nothing to re-embed.
	require.NoError(t, index.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}}, []int64{0, 7}))
	require.Equal(t, 2, index.Len())

	stats, err := service.ProcessDegraded(ctx)
	require.NoError(t, err)

	assert.Zero(t, stats.Scanned)
	assert.Zero(t, stats.Recovered)
	assert.True(t, stats.Rebuilt, "orphaned entries force a rebuild")
	assert.Equal(t, 1, index.Len())
	t.Log("✅ Orphaned index entry pruned even with nothing to re-embed")
}

func TestProcessDegraded_EmptyStoreIsNoop(t *testing.T) {
	service, _, _, index := setupSweep(t)

	stats, err := service.ProcessDegraded(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Scanned)
	assert.False(t, stats.Rebuilt)
	assert.Zero(t, index.Len())
}

func TestProcessDegraded_HonorsLimit(t *testing.T) {
	_, storage, embeddings, index := setupSweep(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveDocument(ctx, &models.Document{ID: "doc_1"}))
	seedChunk(t, storage, "chunk_doc_1_0", 0, "first degraded", make([]float32, 3))
	seedChunk(t, storage, "chunk_doc_1_1", 1, "second degraded", make([]float32, 3))

	limited := NewService(storage, embeddings, index, 1, arbor.NewLogger())
	stats, err := limited.ProcessDegraded(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Recovered)
}
