// Package vectorstore owns VectorRecord lifetime. Similarity indexes live in
// the memory and qdrant subpackages and are keyed by the ids assigned here.
package vectorstore

import (
	"fmt"
	"sync"

	"docqa/internal/domain"
)

// Records is the in-memory VectorRecord store. Global ids are assigned
// monotonically and are never reused, even when a reservation is abandoned.
type Records struct {
	mu        sync.RWMutex
	nextID    uint64
	dimension int
	records   map[uint64]domain.VectorRecord
	byDoc     map[string][]uint64
}

func NewRecords() *Records {
	return &Records{
		records: make(map[uint64]domain.VectorRecord),
		byDoc:   make(map[string][]uint64),
	}
}

// Reserve allocates n consecutive ids and returns the first one.
func (s *Records) Reserve(n int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.nextID
	s.nextID += uint64(n)
	return first
}

// CheckDimension reports domain.ErrDimensionMismatch if dim differs from the
// dimension fixed by the first committed record.
func (s *Records) CheckDimension(dim int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkDimensionLocked(dim)
}

func (s *Records) checkDimensionLocked(dim int) error {
	if dim == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrDimensionMismatch)
	}
	if s.dimension != 0 && dim != s.dimension {
		return fmt.Errorf("%w: store holds %d, got %d", domain.ErrDimensionMismatch, s.dimension, dim)
	}
	return nil
}

// Commit stores records whose ids were obtained from Reserve. Either every
// record is stored or none is.
func (s *Records) Commit(records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dim := s.dimension
	for _, r := range records {
		if dim == 0 {
			dim = len(r.Embedding)
		}
		if len(r.Embedding) == 0 || len(r.Embedding) != dim {
			return fmt.Errorf("%w: record %d has %d, want %d", domain.ErrDimensionMismatch, r.GlobalID, len(r.Embedding), dim)
		}
		if r.GlobalID >= s.nextID {
			return fmt.Errorf("vectorstore: id %d was never reserved", r.GlobalID)
		}
		if _, exists := s.records[r.GlobalID]; exists {
			return fmt.Errorf("vectorstore: id %d already committed", r.GlobalID)
		}
	}
	s.dimension = dim
	for _, r := range records {
		s.records[r.GlobalID] = r
		s.byDoc[r.DocumentID] = append(s.byDoc[r.DocumentID], r.GlobalID)
	}
	return nil
}

// Insert assigns the next id to a single record and stores it.
func (s *Records) Insert(documentID string, localIndex int, text string, embedding []float64) (uint64, error) {
	id := s.Reserve(1)
	err := s.Commit([]domain.VectorRecord{{
		GlobalID:   id,
		DocumentID: documentID,
		LocalIndex: localIndex,
		Text:       text,
		Embedding:  embedding,
	}})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the record for id, if known.
func (s *Records) Get(id uint64) (domain.VectorRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

// ByDocument returns the ids of a document's records in insertion order.
func (s *Records) ByDocument(documentID string) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDoc[documentID]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// Len returns the number of committed records.
func (s *Records) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Dimension returns the embedding dimension, or 0 before the first commit.
func (s *Records) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}
