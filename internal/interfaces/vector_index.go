package interfaces

import "context"

// SearchResult is one (score, id) pair from a similarity search, best match
// first. Score is cosine similarity in [-1, 1] after L2 normalization.
type SearchResult struct {
	Score float32
	ID    int64
}

// VectorIndex stores fixed-dimension vectors under dense integer IDs and
// answers k-nearest-neighbor queries. The similarity metric is normalized
// inner product (cosine); implementations normalize both stored and query
// vectors so mixing metrics across insert and query paths is impossible.
//
// The id -> chunk side mapping lives in DocumentStorage, never inside the
// index itself.
type VectorIndex interface {
	// Add inserts vectors under the given ids and persists the index.
	// Fails with ErrArityMismatch when len(vectors) != len(ids), and with
	// ErrDimensionMismatch when any vector's length differs from Dimension().
	Add(ctx context.Context, vectors [][]float32, ids []int64) error

	// Search returns up to k results ordered by descending similarity.
	// An empty index yields an empty slice, not an error. k <= 0 fails with
	// ErrInvalidArgument.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// Rebuild replaces the entire index contents atomically and persists.
	Rebuild(ctx context.Context, vectors [][]float32, ids []int64) error

	// Len returns the number of stored vectors.
	Len() int

	// Dimension returns the configured vector dimensionality.
	Dimension() int
}
