package retrieval

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

// mockEmbeddings returns a fixed vector per known query and a zero vector
// otherwise.
type mockEmbeddings struct {
	dimension int
	vectors   map[string][]float32
}

func (m *mockEmbeddings) Embed(ctx context.Context, text string) []float32 {
	if vec, ok := m.vectors[text]; ok {
		return vec
	}
	return make([]float32, m.dimension)
}

func (m *mockEmbeddings) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.Embed(ctx, text)
	}
	return out
}

func (m *mockEmbeddings) Dimension() int                      { return m.dimension }
func (m *mockEmbeddings) ModelName() string                   { return "mock-embed" }
func (m *mockEmbeddings) IsAvailable(ctx context.Context) bool { return true }

// mockDocumentStorage serves chunks and documents from in-memory maps.
type mockDocumentStorage struct {
	chunksByIndexID map[int64]*models.Chunk
	documents       map[string]*models.Document
}

func (m *mockDocumentStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	m.documents[doc.ID] = doc
	return nil
}

func (m *mockDocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := m.documents[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentStorage) GetDocumentBySourceURI(ctx context.Context, sourceURI string) (*models.Document, error) {
	for _, doc := range m.documents {
		if doc.SourceURI == sourceURI {
			return doc, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockDocumentStorage) ListDocuments(ctx context.Context, category string, limit int) ([]*models.Document, error) {
	return nil, nil
}

func (m *mockDocumentStorage) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		m.chunksByIndexID[chunk.IndexID] = chunk
	}
	return nil
}

func (m *mockDocumentStorage) GetChunkByIndexID(ctx context.Context, indexID int64) (*models.Chunk, error) {
	chunk, ok := m.chunksByIndexID[indexID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return chunk, nil
}

func (m *mockDocumentStorage) ListChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	return nil, nil
}

func (m *mockDocumentStorage) ListDegradedChunks(ctx context.Context, limit int) ([]*models.Chunk, error) {
	return nil, nil
}

func (m *mockDocumentStorage) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	return nil
}

func (m *mockDocumentStorage) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	return nil
}

func (m *mockDocumentStorage) NextIndexIDs(ctx context.Context, n int) (int64, error) {
	return 0, nil
}

func setupRetriever(t *testing.T) (*Retriever, *mockDocumentStorage, *mockEmbeddings) {
	t.Helper()

	index, err := vectorindex.Load(filepath.Join(t.TempDir(), "index.bin"), 3, arbor.NewLogger())
	require.NoError(t, err)

	storage := &mockDocumentStorage{
		chunksByIndexID: map[int64]*models.Chunk{},
		documents:       map[string]*models.Document{},
	}

	ctx := context.Background()
	storage.documents["doc_1"] = &models.Document{ID: "doc_1", SourceURI: "https://dmv.example.gov/license", Category: "transport"}
	storage.documents["doc_2"] = &models.Document{ID: "doc_2", SourceURI: "https://health.example.gov/benefits", Category: "health"}

	require.NoError(t, storage.SaveChunks(ctx, []*models.Chunk{
		{ID: "chunk_doc_1_0", DocumentID: "doc_1", IndexID: 1, Text: "License renewal steps", Category: "transport"},
		{ID: "chunk_doc_2_0", DocumentID: "doc_2", IndexID: 2, Text: "Benefit application steps", Category: "health"},
	}))

	require.NoError(t, index.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}}, []int64{1, 2}))

	embeddings := &mockEmbeddings{
		dimension: 3,
		vectors: map[string][]float32{
			"how do I renew my license": {0.9, 0.1, 0},
			"health benefits":           {0.1, 0.9, 0},
		},
	}

	return NewRetriever(embeddings, index, storage, arbor.NewLogger()), storage, embeddings
}

func TestRetrieve_RanksByRelevance(t *testing.T) {
	retriever, _, _ := setupRetriever(t)

	results, err := retriever.Retrieve(context.Background(), "how do I renew my license", 2, "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "chunk_doc_1_0", results[0].ChunkID)
	assert.Equal(t, "https://dmv.example.gov/license", results[0].SourceURI)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRetrieve_DegradedQueryReturnsEmpty(t *testing.T) {
	retriever, _, _ := setupRetriever(t)

	// Unknown query embeds to the zero vector.
	results, err := retriever.Retrieve(context.Background(), "unmapped query", 3, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_SilentlyDropsUnresolvableIDs(t *testing.T) {
	retriever, storage, _ := setupRetriever(t)

	// Simulate a stale index entry pointing at a deleted chunk.
	delete(storage.chunksByIndexID, 1)

	results, err := retriever.Retrieve(context.Background(), "how do I renew my license", 2, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk_doc_2_0", results[0].ChunkID)
}

func TestRetrieve_CategoryFilter(t *testing.T) {
	retriever, _, _ := setupRetriever(t)

	results, err := retriever.Retrieve(context.Background(), "how do I renew my license", 2, "health")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "health", results[0].Category)
}

func TestRetrieve_InvalidTopK(t *testing.T) {
	retriever, _, _ := setupRetriever(t)

	_, err := retriever.Retrieve(context.Background(), "anything", 0, "")
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
}
