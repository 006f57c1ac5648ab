package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Index is a minimal REST client to Qdrant implementing domain.Index.
// Points use the global id as their unsigned integer id and cosine distance.
// The collection is created on the first Add, once the dimension is known.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu        sync.Mutex
	dimension int
	count     int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewIndex(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Reset drops the collection so point ids left by a previous process cannot
// collide with ids assigned by this one. A missing collection is not an error.
func (s *Index) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil, http.StatusNotFound)
	if err != nil {
		return err
	}
	s.dimension = 0
	s.count = 0
	return nil
}

func (s *Index) Add(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dim := s.dimension
	if dim == 0 {
		dim = len(entries[0].Embedding)
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		if len(e.Embedding) == 0 || len(e.Embedding) != dim {
			return fmt.Errorf("%w: index holds %d, got %d", domain.ErrDimensionMismatch, dim, len(e.Embedding))
		}
		points[i] = map[string]any{
			"id":      e.GlobalID,
			"vector":  e.Embedding,
			"payload": map[string]any{"global_id": e.GlobalID},
		}
	}
	if s.dimension == 0 {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dim,
				"distance": "Cosine",
			},
		}
		if err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
			return err
		}
		s.dimension = dim
	}
	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil); err != nil {
		return err
	}
	s.count += len(entries)
	return nil
}

// Query returns the k best hits among candidates. Qdrant cuts results at
// its limit before ids are compared, so the limit grows until the k-th score
// is no longer tied with the last returned hit; ties then resolve by
// ascending global id like the in-memory index.
func (s *Index) Query(ctx context.Context, vector []float64, k int, candidates map[uint64]struct{}) ([]domain.Hit, error) {
	s.mu.Lock()
	dim, total := s.dimension, s.count
	s.mu.Unlock()
	if k <= 0 || dim == 0 || (candidates != nil && len(candidates) == 0) {
		return nil, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: index holds %d, query has %d", domain.ErrDimensionMismatch, dim, len(vector))
	}
	req := map[string]any{
		"vector":       vector,
		"with_payload": false,
	}
	if candidates != nil {
		ids := make([]uint64, 0, len(candidates))
		for id := range candidates {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		req["filter"] = map[string]any{
			"must": []map[string]any{{"has_id": ids}},
		}
		total = len(ids)
	}

	limit := min(k+1, max(total, k))
	var hits []domain.Hit
	for {
		req["limit"] = limit
		var err error
		hits, err = s.search(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(hits) < limit || limit >= total || hits[limit-1].Score != hits[k-1].Score {
			break
		}
		limit = min(limit*2, total)
	}
	vectorstore.SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Index) search(ctx context.Context, req map[string]any) ([]domain.Hit, error) {
	var resp struct {
		Result []struct {
			ID    uint64  `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.Hit{GlobalID: r.ID, Score: r.Score})
	}
	return hits, nil
}

// Len returns the number of points added by this process.
func (s *Index) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Index) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// do sends a JSON request. Statuses listed in tolerated are treated as success.
func (s *Index) do(ctx context.Context, method, url string, body any, out any, tolerated ...int) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	for _, code := range tolerated {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ domain.Index = (*Index)(nil)
