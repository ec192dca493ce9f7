package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
	"github.com/adiuvo-ai/adiuvo/internal/services/chunker"
	"github.com/adiuvo-ai/adiuvo/internal/services/vectorindex"
)

// stubEmbeddings returns a deterministic vector derived from text length,
// or the zero vector for texts listed in fail.
type stubEmbeddings struct {
	dimension int
	fail      map[string]bool
	calls     int
}

func (s *stubEmbeddings) Embed(ctx context.Context, text string) []float32 {
	s.calls++
	vec := make([]float32, s.dimension)
	if s.fail[text] {
		return vec
	}
	vec[0] = float32(len(text)%7) + 1
	vec[1] = 1
	return vec
}

func (s *stubEmbeddings) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.Embed(ctx, text)
	}
	return out
}

func (s *stubEmbeddings) Dimension() int                       { return s.dimension }
func (s *stubEmbeddings) ModelName() string                    { return "stub-embed" }
func (s *stubEmbeddings) IsAvailable(ctx context.Context) bool { return true }

// memoryDocuments is an in-memory DocumentStorage with a monotonic index id
// counter.
type memoryDocuments struct {
	documents map[string]*models.Document
	chunks    map[string]*models.Chunk
	nextID    int64
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{
		documents: map[string]*models.Document{},
		chunks:    map[string]*models.Chunk{},
	}
}

func (m *memoryDocuments) SaveDocument(ctx context.Context, doc *models.Document) error {
	m.documents[doc.ID] = doc
	return nil
}

func (m *memoryDocuments) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := m.documents[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return doc, nil
}

func (m *memoryDocuments) GetDocumentBySourceURI(ctx context.Context, sourceURI string) (*models.Document, error) {
	for _, doc := range m.documents {
		if doc.SourceURI == sourceURI {
			return doc, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *memoryDocuments) ListDocuments(ctx context.Context, category string, limit int) ([]*models.Document, error) {
	var out []*models.Document
	for _, doc := range m.documents {
		out = append(out, doc)
	}
	return out, nil
}

func (m *memoryDocuments) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

func (m *memoryDocuments) GetChunkByIndexID(ctx context.Context, indexID int64) (*models.Chunk, error) {
	for _, chunk := range m.chunks {
		if chunk.IndexID == indexID {
			return chunk, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *memoryDocuments) ListChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	var out []*models.Chunk
	for _, chunk := range m.chunks {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (m *memoryDocuments) ListDegradedChunks(ctx context.Context, limit int) ([]*models.Chunk, error) {
	var out []*models.Chunk
	for _, chunk := range m.chunks {
		if interfaces.IsDegraded(chunk.Embedding) {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (m *memoryDocuments) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	chunk, ok := m.chunks[chunkID]
	if !ok {
		return interfaces.ErrNotFound
	}
	chunk.Embedding = embedding
	return nil
}

func (m *memoryDocuments) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	for id, chunk := range m.chunks {
		if chunk.DocumentID == documentID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *memoryDocuments) NextIndexIDs(ctx context.Context, n int) (int64, error) {
	first := m.nextID
	m.nextID += int64(n)
	return first, nil
}

func setupService(t *testing.T) (*Service, *memoryDocuments, *stubEmbeddings, interfaces.VectorIndex) {
	t.Helper()

	index, err := vectorindex.Load(filepath.Join(t.TempDir(), "index.bin"), 4, arbor.NewLogger())
	require.NoError(t, err)

	storage := newMemoryDocuments()
	embeddings := &stubEmbeddings{dimension: 4, fail: map[string]bool{}}
	service := NewService(chunker.New(80, 0.5), embeddings, index, storage, 2, arbor.NewLogger())

	return service, storage, embeddings, index
}

func longDocument(paragraphs int) string {
	var sb strings.Builder
	sb.WriteString("# Renewing a Driver License\n\n")
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&sb, "Paragraph %d covers one renewal step in enough detail to fill a chunk.\n\n", i)
	}
	return sb.String()
}

func TestIngest_PersistsChunksInOrder(t *testing.T) {
	service, storage, _, index := setupService(t)

	result, err := service.Ingest(context.Background(), Request{
		SourceURI: "https://dmv.example.gov/renewal",
		Content:   longDocument(6),
		Category:  "transport",
	})
	require.NoError(t, err)

	assert.Equal(t, "Renewing a Driver License", result.Title)
	assert.Greater(t, result.Chunks, 1)
	assert.Zero(t, result.Degraded)

	chunks, err := storage.ListChunksByDocument(context.Background(), result.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, result.Chunks)

	seen := map[int]bool{}
	for _, chunk := range chunks {
		assert.Equal(t, result.DocumentID, chunk.DocumentID)
		assert.Equal(t, "transport", chunk.Category)
		assert.Equal(t, len(chunk.Text), chunk.CharLength)
		assert.False(t, seen[chunk.Sequence], "duplicate sequence %d", chunk.Sequence)
		seen[chunk.Sequence] = true

		// Every persisted chunk is resolvable through its index id.
		got, err := storage.GetChunkByIndexID(context.Background(), chunk.IndexID)
		require.NoError(t, err)
		assert.Equal(t, chunk.ID, got.ID)
	}

	assert.Equal(t, result.Chunks, index.Len())
	t.Logf("✅ %d chunks persisted with contiguous sequences and index ids", result.Chunks)
}

func TestIngest_TitleFallsBackToSourceURI(t *testing.T) {
	service, _, _, _ := setupService(t)

	result, err := service.Ingest(context.Background(), Request{
		SourceURI: "https://dmv.example.gov/fees",
		Content:   "Fee schedule text without any heading.",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://dmv.example.gov/fees", result.Title)
}

func TestIngest_HTMLIsNormalizedBeforeChunking(t *testing.T) {
	service, storage, _, _ := setupService(t)

	html := `<html><head><script>tracker()</script></head><body>
		<nav>Home | About</nav>
		<h1>Vehicle Registration</h1>
		<p>Bring your title and proof of insurance.</p>
		<footer>Copyright</footer>
	</body></html>`

	result, err := service.Ingest(context.Background(), Request{
		SourceURI: "https://dmv.example.gov/registration",
		Content:   html,
		HTML:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Vehicle Registration", result.Title)

	chunks, err := storage.ListChunksByDocument(context.Background(), result.DocumentID)
	require.NoError(t, err)
	for _, chunk := range chunks {
		assert.NotContains(t, chunk.Text, "tracker()")
		assert.NotContains(t, chunk.Text, "Home | About")
		assert.NotContains(t, chunk.Text, "Copyright")
	}
}

func TestIngest_CountsDegradedChunks(t *testing.T) {
	service, storage, embeddings, _ := setupService(t)

	content := longDocument(6)
	// Fail every chunk the splitter will produce for this content.
	for _, text := range chunker.New(80, 0.5).Split(content) {
		embeddings.fail[text] = true
	}

	result, err := service.Ingest(context.Background(), Request{
		SourceURI: "https://dmv.example.gov/outage",
		Content:   content,
	})
	require.NoError(t, err)
	assert.Equal(t, result.Chunks, result.Degraded)

	degraded, err := storage.ListDegradedChunks(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, degraded, result.Chunks)
	t.Logf("✅ %d degraded chunks persisted for later reprocessing", result.Degraded)
}

func TestIngest_ReingestReplacesChunks(t *testing.T) {
	service, storage, _, _ := setupService(t)
	ctx := context.Background()

	first, err := service.Ingest(ctx, Request{
		SourceURI: "https://dmv.example.gov/renewal",
		Content:   longDocument(6),
		Category:  "transport",
	})
	require.NoError(t, err)

	second, err := service.Ingest(ctx, Request{
		SourceURI: "https://dmv.example.gov/renewal",
		Content:   "# Renewing a Driver License\n\nShortened page after a site redesign.",
		Category:  "transport",
	})
	require.NoError(t, err)

	assert.Equal(t, first.DocumentID, second.DocumentID, "same source URI keeps its document id")
	assert.Len(t, storage.documents, 1)

	chunks, err := storage.ListChunksByDocument(ctx, second.DocumentID)
	require.NoError(t, err)
	assert.Len(t, chunks, second.Chunks, "old chunks are gone")

	// Old index ids no longer resolve; new ones do.
	for _, chunk := range chunks {
		assert.GreaterOrEqual(t, chunk.IndexID, int64(first.Chunks))
	}
}

func TestIngest_RejectsEmptyInput(t *testing.T) {
	service, _, _, _ := setupService(t)

	_, err := service.Ingest(context.Background(), Request{Content: "text"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)

	_, err = service.Ingest(context.Background(), Request{SourceURI: "https://x.example.gov"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
}

func TestIngest_CancellationLeavesStoreUntouched(t *testing.T) {
	service, storage, _, index := setupService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Ingest(ctx, Request{
		SourceURI: "https://dmv.example.gov/renewal",
		Content:   longDocument(6),
	})
	require.Error(t, err)

	assert.Empty(t, storage.chunks)
	assert.Zero(t, index.Len())
}
