package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/hashing"
	"docqa/internal/embedding/openai"
	"docqa/internal/service"
	"docqa/internal/session"
	"docqa/internal/summarizer"
	"docqa/internal/tokens"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "hashing":
		var opts []hashing.Option
		if cfg.Embedder.Hashing != nil {
			opts = append(opts, hashing.WithBigrams(cfg.Embedder.Hashing.Bigrams))
		}
		h, err := hashing.NewEmbedder(cfg.Embedder.Dimension, opts...)
		if err != nil {
			return nil, err
		}
		emb = h
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrInvalidConfig)
		}
		oc := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Dimensions: oc.Dimensions,
			Timeout:    time.Duration(oc.TimeoutSecs) * time.Second,
			MaxRetries: oc.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, cfg.Embedder.Type)
	}
	return embedding.WithRateLimit(emb, embedding.RateLimitConfig{
		RequestsPerSecond: cfg.Embedder.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.Embedder.RateLimit.Burst,
	}), nil
}

func buildChunker(cfg *config.AppConfig) (domain.Chunker, error) {
	switch cfg.Chunker.Type {
	case "window":
		return chunker.NewWindowChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	case "sentence":
		return chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("%w: unknown chunker %q", domain.ErrInvalidConfig, cfg.Chunker.Type)
	}
}

// buildIndex returns an empty index. A Qdrant collection is dropped first so
// it never holds ids the in-memory record store does not know.
func buildIndex(ctx context.Context, cfg *config.AppConfig) (domain.Index, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.NewIndex(), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, fmt.Errorf("%w: qdrant config missing", domain.ErrInvalidConfig)
		}
		idx := qdrant.NewIndex(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
		if err := idx.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset qdrant collection: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidConfig, cfg.VectorStore.Type)
	}
}

func buildSummarizer(cfg *config.AppConfig) (domain.Summarizer, error) {
	switch cfg.Summarizer.Type {
	case "frequency":
		return summarizer.NewFrequencySummarizer(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown summarizer %q", domain.ErrInvalidConfig, cfg.Summarizer.Type)
	}
}

func buildService(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*service.RAGService, error) {
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := buildChunker(cfg)
	if err != nil {
		return nil, err
	}
	idx, err := buildIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sum, err := buildSummarizer(cfg)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithTokenCounter(tokens.New(cfg.Tokens.Encoding, logger)),
		service.WithTopK(cfg.Retrieval.TopK),
		service.WithEmbedConcurrency(cfg.Retrieval.EmbedConcurrency),
	}
	if sum != nil {
		opts = append(opts, service.WithSummarizer(sum, cfg.Summarizer.MaxSentences))
	}

	logger.Info("service assembled",
		"embedder", emb.Name(),
		"chunker", cfg.Chunker.Type,
		"vector_store", cfg.VectorStore.Type,
		"top_k", cfg.Retrieval.TopK,
	)
	return service.NewRAGService(ch, emb, vectorstore.NewRecords(), idx, session.NewLedger(), opts...)
}
