package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func norm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestEmbedder_FixedDimensionAndNormalized(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)

	for _, text := range []string{"hello", "Retrieval augmented generation over documents", "42 answers"} {
		v, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Len(t, v, 64)
		assert.InDelta(t, 1.0, norm(v), 1e-9)
	}
	assert.Equal(t, 64, e.Dimension())
	assert.Equal(t, "hashing", e.Name())
}

func TestEmbedder_Deterministic(t *testing.T) {
	e, err := NewEmbedder(128, WithBigrams(true))
	require.NoError(t, err)

	a, err := e.Embed(context.Background(), "vector index growth")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "Vector INDEX growth!")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e, err := NewEmbedder(512)
	require.NoError(t, err)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "how do penguins swim")
	near, _ := e.Embed(ctx, "penguins swim fast in cold water")
	far, _ := e.Embed(ctx, "quarterly revenue grew in europe")
	assert.Greater(t, dot(q, near), dot(q, far))
}

func TestEmbedder_StopwordsOnlyIsZero(t *testing.T) {
	e, err := NewEmbedder(32)
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Zero(t, norm(v))
}

func TestEmbedder_Errors(t *testing.T) {
	_, err := NewEmbedder(0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	e, err := NewEmbedder(8)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, "text")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}
