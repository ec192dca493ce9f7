package vectorindex

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// Metric is recorded in the persisted artifact so a file built under a
// different similarity regime is rejected at load instead of silently
// returning meaningless scores.
const Metric = "cosine"

// persistedIndex is the on-disk representation of the index.
type persistedIndex struct {
	Dimension int
	Metric    string
	IDs       []int64
	Vectors   [][]float32
}

// Index is a flat vector index over L2-normalized vectors using inner
// product similarity (cosine). Mutations are serialized relative to
// persistence; searches run concurrently with each other but not with a
// save or reload cycle.
type Index struct {
	mu        sync.RWMutex
	dimension int
	path      string
	ids       []int64
	vectors   [][]float32
	logger    arbor.ILogger
}

// Compile-time assertion
var _ interfaces.VectorIndex = (*Index)(nil)

// Load opens the index artifact at path, creating an empty index if the
// file does not exist. A dimension or metric mismatch in the artifact is an
// error; the caller decides whether to rebuild.
func Load(path string, dimension int, logger arbor.ILogger) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: index dimension must be positive, got %d", interfaces.ErrInvalidArgument, dimension)
	}

	idx := &Index{
		dimension: dimension,
		path:      path,
		logger:    logger,
	}

	data, err := os.Open(path)
	if os.IsNotExist(err) {
		logger.Info().Str("path", path).Int("dimension", dimension).Msg("Index artifact not found, starting empty")
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index artifact: %w", err)
	}
	defer data.Close()

	var stored persistedIndex
	if err := gob.NewDecoder(data).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode index artifact %s: %w", path, err)
	}

	if stored.Metric != Metric {
		return nil, fmt.Errorf("index artifact %s uses metric %q, expected %q", path, stored.Metric, Metric)
	}
	if stored.Dimension != dimension {
		return nil, fmt.Errorf("%w: index artifact %s has dimension %d, configured %d", interfaces.ErrDimensionMismatch, path, stored.Dimension, dimension)
	}
	if len(stored.IDs) != len(stored.Vectors) {
		return nil, fmt.Errorf("%w: index artifact %s holds %d ids for %d vectors", interfaces.ErrArityMismatch, path, len(stored.IDs), len(stored.Vectors))
	}

	idx.ids = stored.IDs
	idx.vectors = stored.Vectors

	logger.Info().
		Str("path", path).
		Int("vectors", len(idx.vectors)).
		Int("dimension", dimension).
		Msg("Loaded vector index")

	return idx, nil
}

// Add inserts vectors under the given ids and persists the index. Vectors
// are L2-normalized on insertion; zero vectors are stored as-is and can
// never win a cosine search.
func (x *Index) Add(ctx context.Context, vectors [][]float32, ids []int64) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("%w: %d vectors, %d ids", interfaces.ErrArityMismatch, len(vectors), len(ids))
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", interfaces.ErrDimensionMismatch, i, len(v), x.dimension)
		}
		normalized[i] = normalize(v)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.vectors = append(x.vectors, normalized...)
	x.ids = append(x.ids, ids...)

	if err := x.saveLocked(); err != nil {
		return fmt.Errorf("failed to persist index after add: %w", err)
	}

	x.logger.Debug().
		Int("added", len(vectors)).
		Int("total", len(x.vectors)).
		Msg("Added vectors to index")

	return nil
}

// Rebuild replaces the entire index contents atomically and persists.
func (x *Index) Rebuild(ctx context.Context, vectors [][]float32, ids []int64) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("%w: %d vectors, %d ids", interfaces.ErrArityMismatch, len(vectors), len(ids))
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", interfaces.ErrDimensionMismatch, i, len(v), x.dimension)
		}
		normalized[i] = normalize(v)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.vectors = normalized
	x.ids = append([]int64(nil), ids...)

	if err := x.saveLocked(); err != nil {
		return fmt.Errorf("failed to persist index after rebuild: %w", err)
	}

	x.logger.Info().Int("vectors", len(x.vectors)).Msg("Rebuilt vector index")

	return nil
}

// Search returns up to k results ordered by descending cosine similarity.
// An empty index yields an empty slice.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]interfaces.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", interfaces.ErrInvalidArgument, k)
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, expected %d", interfaces.ErrDimensionMismatch, len(query), x.dimension)
	}

	q := normalize(query)

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 {
		return []interfaces.SearchResult{}, nil
	}

	results := make([]interfaces.SearchResult, 0, len(x.vectors))
	for i, v := range x.vectors {
		results = append(results, interfaces.SearchResult{
			Score: dot(q, v),
			ID:    x.ids[i],
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimension returns the configured vector dimensionality.
func (x *Index) Dimension() int {
	return x.dimension
}

// saveLocked writes the artifact to disk. Caller holds the write lock.
// The write goes to a temp file first so a crash mid-save never leaves a
// truncated artifact.
func (x *Index) saveLocked() error {
	if x.path == "" {
		return nil // In-memory index (tests)
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp := x.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index temp file: %w", err)
	}

	stored := persistedIndex{
		Dimension: x.dimension,
		Metric:    Metric,
		IDs:       x.ids,
		Vectors:   x.vectors,
	}

	if err := gob.NewEncoder(f).Encode(&stored); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close index temp file: %w", err)
	}

	if err := os.Rename(tmp, x.path); err != nil {
		return fmt.Errorf("failed to replace index artifact: %w", err)
	}

	return nil
}

// normalize returns the L2-normalized copy of v. Zero vectors are returned
// unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		return out
	}

	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f / norm
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
