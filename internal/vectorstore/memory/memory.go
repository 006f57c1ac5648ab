package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Index is an in-memory similarity index using brute-force cosine similarity.
// Vectors are append-only and keyed by global id.
type Index struct {
	mu        sync.RWMutex
	dimension int
	ids       []uint64
	vectors   [][]float64
	norms     []float64
	known     map[uint64]struct{}
}

func NewIndex() *Index {
	return &Index{known: make(map[uint64]struct{})}
}

// Add appends entries. The batch is validated first so a failure adds nothing.
func (s *Index) Add(ctx context.Context, entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dim := s.dimension
	batch := make(map[uint64]struct{}, len(entries))
	for _, e := range entries {
		if dim == 0 {
			dim = len(e.Embedding)
		}
		if len(e.Embedding) == 0 || len(e.Embedding) != dim {
			return fmt.Errorf("%w: index holds %d, got %d", domain.ErrDimensionMismatch, dim, len(e.Embedding))
		}
		if _, dup := s.known[e.GlobalID]; dup {
			return fmt.Errorf("memory index: id %d already added", e.GlobalID)
		}
		if _, dup := batch[e.GlobalID]; dup {
			return fmt.Errorf("memory index: id %d repeated in batch", e.GlobalID)
		}
		batch[e.GlobalID] = struct{}{}
	}
	s.dimension = dim
	for _, e := range entries {
		v := make([]float64, len(e.Embedding))
		copy(v, e.Embedding)
		s.ids = append(s.ids, e.GlobalID)
		s.vectors = append(s.vectors, v)
		s.norms = append(s.norms, norm(v))
		s.known[e.GlobalID] = struct{}{}
	}
	return nil
}

// Query scores every stored vector (restricted to candidates when non-nil)
// and returns the k best, ties broken by ascending id.
func (s *Index) Query(ctx context.Context, vector []float64, k int, candidates map[uint64]struct{}) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.ids) == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: index holds %d, query has %d", domain.ErrDimensionMismatch, s.dimension, len(vector))
	}
	qnorm := norm(vector)
	hits := make([]domain.Hit, 0, len(s.ids))
	for i, id := range s.ids {
		if candidates != nil {
			if _, ok := candidates[id]; !ok {
				continue
			}
		}
		hits = append(hits, domain.Hit{GlobalID: id, Score: cosine(vector, s.vectors[i], qnorm, s.norms[i])})
	}
	vectorstore.SortHits(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored vectors.
func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Mismatched or zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return cosine(a, b, norm(a), norm(b))
}

func cosine(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return math.Max(-1, math.Min(1, dot/(na*nb)))
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

var _ domain.Index = (*Index)(nil)
