package vectorstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestRecords_InsertAndGet(t *testing.T) {
	s := NewRecords()

	id0, err := s.Insert("doc-a", 0, "first", []float64{1, 0})
	require.NoError(t, err)
	id1, err := s.Insert("doc-a", 1, "second", []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id0)
	assert.Equal(t, uint64(1), id1)

	r, ok := s.Get(id1)
	require.True(t, ok)
	assert.Equal(t, "doc-a", r.DocumentID)
	assert.Equal(t, "second", r.Text)

	_, ok = s.Get(99)
	assert.False(t, ok)
	assert.Equal(t, []uint64{0, 1}, s.ByDocument("doc-a"))
	assert.Empty(t, s.ByDocument("missing"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.Dimension())
}

func TestRecords_DimensionMismatch(t *testing.T) {
	s := NewRecords()
	_, err := s.Insert("d", 0, "x", []float64{1, 2, 3})
	require.NoError(t, err)

	_, err = s.Insert("d", 1, "y", []float64{1, 2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.ErrorIs(t, s.CheckDimension(4), domain.ErrDimensionMismatch)
	assert.NoError(t, s.CheckDimension(3))
	assert.Equal(t, 1, s.Len())
}

func TestRecords_CommitIsAllOrNothing(t *testing.T) {
	s := NewRecords()
	first := s.Reserve(2)
	err := s.Commit([]domain.VectorRecord{
		{GlobalID: first, DocumentID: "d", Embedding: []float64{1, 0}},
		{GlobalID: first + 1, DocumentID: "d", Embedding: []float64{1}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.ByDocument("d"))
}

func TestRecords_IDsNeverReused(t *testing.T) {
	s := NewRecords()
	abandoned := s.Reserve(3)
	id, err := s.Insert("d", 0, "x", []float64{1})
	require.NoError(t, err)
	assert.Equal(t, abandoned+3, id)

	err = s.Commit([]domain.VectorRecord{{GlobalID: id, DocumentID: "d", Embedding: []float64{1}}})
	assert.Error(t, err)
	err = s.Commit([]domain.VectorRecord{{GlobalID: id + 10, DocumentID: "d", Embedding: []float64{1}}})
	assert.Error(t, err)
}

func TestRecords_ConcurrentInsertsStayStable(t *testing.T) {
	s := NewRecords()
	const n = 200
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Insert("d", i, "t", []float64{float64(i), 1})
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for i, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
		r, ok := s.Get(id)
		require.True(t, ok)
		assert.Equal(t, i, r.LocalIndex)
	}
}
