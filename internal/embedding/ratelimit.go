// Package embedding holds decorators shared by every domain.Embedder implementation.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"docqa/internal/domain"
)

// RateLimitConfig holds rate limiting configuration for embedding calls.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit. Zero disables limiting.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// RateLimited throttles calls to the wrapped embedder with a token bucket.
type RateLimited struct {
	next    domain.Embedder
	limiter *rate.Limiter
}

// WithRateLimit wraps next in a token bucket limiter. It returns next unchanged
// when cfg.RequestsPerSecond is not positive.
func WithRateLimit(next domain.Embedder, cfg RateLimitConfig) domain.Embedder {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// Name returns the wrapped embedder's name.
func (r *RateLimited) Name() string { return r.next.Name() }

// Embed waits for a token and delegates. A wait aborted by the context is
// reported as domain.ErrEmbeddingUnavailable.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return r.next.Embed(ctx, text)
}
