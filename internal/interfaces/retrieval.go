package interfaces

import "context"

// RetrievedChunk is one chunk payload returned from retrieval, carrying
// enough context to build an augmented prompt and cite the source.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	SourceURI  string  `json:"source_uri"`
	Score      float32 `json:"score"`
}

// Retriever fetches the most relevant stored chunks for a query. Results may
// be shorter than topK: ids with no resolvable source are silently dropped,
// and an empty index or degraded query embedding yields an empty slice.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, category string) ([]RetrievedChunk, error)
}

// AnswerGenerator produces a context-augmented answer. Provider failures
// degrade to a fixed apology string; generation never crashes the caller.
type AnswerGenerator interface {
	Generate(ctx context.Context, query string, contextChunks []string, category string) string
}
