package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"docqa/internal/domain"
)

// DefaultDimension is used when no dimension is configured.
const DefaultDimension = 384

// Embedder is an offline bag-of-words embedder. Terms are hashed into a fixed
// number of signed buckets, weighted by sublinear term frequency and L2
// normalized, so the dimension never depends on the corpus.
type Embedder struct {
	dimension    int
	bigrams      bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// Option configures the hashing embedder.
type Option func(*Embedder)

// WithBigrams additionally hashes adjacent term pairs.
func WithBigrams(enabled bool) Option {
	return func(e *Embedder) {
		e.bigrams = enabled
	}
}

// NewEmbedder creates an embedder producing vectors of the given dimension.
func NewEmbedder(dimension int, opts ...Option) (*Embedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: hashing dimension must be positive, got %d", domain.ErrInvalidConfig, dimension)
	}
	e := &Embedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the length of every produced vector.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the hashed term vector for text. Text without any indexable
// term maps to the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	tokens := e.tokenize(text)
	tf := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		tf[tok]++
		if e.bigrams && i > 0 {
			tf[tokens[i-1]+" "+tok]++
		}
	}
	vec := make([]float64, e.dimension)
	for term, count := range tf {
		idx, sign := e.bucket(term)
		vec[idx] += sign * (1 + math.Log(float64(count)))
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (e *Embedder) bucket(term string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1
	}
	return int(sum % uint64(e.dimension)), sign
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
