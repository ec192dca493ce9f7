package models

import "time"

// Document represents an ingested source document. Immutable once stored;
// re-ingestion under the same ID supersedes it and tombstones its chunks.
type Document struct {
	// Identity
	ID        string `json:"id"`         // doc_<uuid>, or caller-supplied for re-ingestion
	SourceURI string `json:"source_uri"` // Origin: URL or file path

	// Content (markdown-first, normalized at ingest)
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"` // Tenant/category tag, e.g. "dmv", "tax", "health"

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chunk is a bounded contiguous slice of a document's text, the unit of
// embedding and retrieval. Sequence numbers are monotonic and gapless per
// document and reflect original text order, not embed completion order.
type Chunk struct {
	ID         string `json:"id"` // chunk_<docID>_<seq>
	DocumentID string `json:"document_id"`
	Sequence   int    `json:"sequence"`
	Text       string `json:"text"`
	CharLength int    `json:"char_length"`
	Category   string `json:"category"` // Denormalized from the parent document

	// IndexID is the dense integer key inside the vector index. The chunk
	// record itself is the side mapping: index id -> chunk, never embedded
	// in the index structure.
	IndexID int64 `json:"index_id" badgerhold:"index"`

	// Embedding is the stored vector for the chunk text. All-zero means the
	// provider call degraded; the processing sweep re-embeds these.
	Embedding []float32 `json:"embedding"`

	CreatedAt time.Time `json:"created_at"`
}

// Degraded reports whether the chunk's stored embedding is the all-zero
// fallback produced by a failed provider call.
func (c *Chunk) Degraded() bool {
	if len(c.Embedding) == 0 {
		return true
	}
	for _, v := range c.Embedding {
		if v != 0 {
			return false
		}
	}
	return true
}
