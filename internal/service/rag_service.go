package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
	"docqa/internal/session"
	"docqa/internal/tokens"
	"docqa/internal/vectorstore"
)

const (
	// DefaultTopK is the number of chunks returned when the caller does not ask for a specific count.
	DefaultTopK = 5
	// DefaultEmbedConcurrency bounds parallel embedding calls during one ingestion.
	DefaultEmbedConcurrency = 4
)

// RetrieveRequest is the input of Retrieve.
type RetrieveRequest struct {
	SessionID   string
	DocumentIDs []string
	Question    string
	// TopK overrides the configured result count when positive.
	TopK int
}

// Stats summarises in-memory state for diagnostics.
type Stats struct {
	Documents int
	Records   int
	Indexed   int
	Dimension int
	Sessions  int
}

// RAGService ingests documents into the vector store and answers questions
// from them. The document table, record store and index are mutated together
// under mu, so readers see either none or all of a document's chunks.
type RAGService struct {
	chunker             domain.Chunker
	embedder            domain.Embedder
	records             *vectorstore.Records
	index               domain.Index
	sessions            *session.Ledger
	summarizer          domain.Summarizer
	summaryMaxSentences int
	tokens              domain.TokenCounter
	topK                int
	embedConcurrency    int
	newID               func() string
	logger              *slog.Logger

	mu        sync.RWMutex
	documents map[string]domain.Document
	order     []string
}

type Option func(*RAGService)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *RAGService) {
		s.logger = logger
	}
}

// WithSummarizer enables an extractive summary of each ingested document.
func WithSummarizer(summarizer domain.Summarizer, maxSentences int) Option {
	return func(s *RAGService) {
		s.summarizer = summarizer
		s.summaryMaxSentences = maxSentences
	}
}

// WithTokenCounter sets the counter used for token usage reporting.
func WithTokenCounter(counter domain.TokenCounter) Option {
	return func(s *RAGService) {
		s.tokens = counter
	}
}

// WithTopK sets the default number of chunks returned by Retrieve.
func WithTopK(k int) Option {
	return func(s *RAGService) {
		s.topK = k
	}
}

// WithEmbedConcurrency bounds concurrent embedding calls within one ingestion.
func WithEmbedConcurrency(n int) Option {
	return func(s *RAGService) {
		s.embedConcurrency = n
	}
}

// WithIDGenerator replaces the uuid document id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *RAGService) {
		s.newID = newID
	}
}

func NewRAGService(chunker domain.Chunker, embedder domain.Embedder, records *vectorstore.Records, index domain.Index, sessions *session.Ledger, opts ...Option) (*RAGService, error) {
	if chunker == nil || embedder == nil || records == nil || index == nil || sessions == nil {
		return nil, fmt.Errorf("%w: chunker, embedder, records, index and sessions are required", domain.ErrInvalidConfig)
	}
	s := &RAGService{
		chunker:          chunker,
		embedder:         embedder,
		records:          records,
		index:            index,
		sessions:         sessions,
		tokens:           tokens.Words{},
		topK:             DefaultTopK,
		embedConcurrency: DefaultEmbedConcurrency,
		newID:            func() string { return uuid.New().String() },
		logger:           slog.Default(),
		documents:        make(map[string]domain.Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.topK <= 0 {
		return nil, fmt.Errorf("%w: top k must be positive, got %d", domain.ErrInvalidConfig, s.topK)
	}
	if s.embedConcurrency <= 0 {
		s.embedConcurrency = 1
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Ingest chunks and embeds text, then publishes the document atomically.
// Embeddings are computed before any lock is taken; a failure leaves the
// store, the index and the document table untouched.
func (s *RAGService) Ingest(ctx context.Context, filename, text string) (domain.IngestResult, error) {
	docID := s.newID()
	chunks, err := s.chunker.Chunk(docID, text)
	if err != nil {
		return domain.IngestResult{}, domain.NewOpError("ingest", err)
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		s.logger.Warn("ingestion aborted", "filename", filename, "chunks", len(chunks), "error", err)
		return domain.IngestResult{}, domain.NewOpError("ingest", err)
	}

	var summary string
	if s.summarizer != nil {
		summary, err = s.summarizer.Summarize(text, s.summaryMaxSentences)
		if err != nil {
			return domain.IngestResult{}, domain.NewOpError("ingest", fmt.Errorf("summarize: %w", err))
		}
	}

	if err := s.publish(ctx, domain.Document{ID: docID, Filename: filename, Content: text, ChunkCount: len(chunks)}, chunks, vectors); err != nil {
		return domain.IngestResult{}, domain.NewOpError("ingest", err)
	}

	s.logger.Info("document ingested", "document_id", docID, "filename", filename, "chunks", len(chunks))
	return domain.IngestResult{
		DocumentID: docID,
		Filename:   filename,
		ChunkCount: len(chunks),
		Summary:    summary,
	}, nil
}

func (s *RAGService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float64, error) {
	vectors := make([][]float64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedConcurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := s.embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", chunks[i].Index, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := 1; i < len(vectors); i++ {
		if len(vectors[i]) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: chunk %d has %d, chunk 0 has %d", domain.ErrDimensionMismatch, i, len(vectors[i]), len(vectors[0]))
		}
	}
	return vectors, nil
}

func (s *RAGService) embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, s.embedder.Name(), err)
	}
	return vec, nil
}

// publish appends a document's vectors to the index and the record store and
// registers the document. Index ids are always a subset of store ids.
func (s *RAGService) publish(ctx context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(chunks) > 0 {
		if err := s.records.CheckDimension(len(vectors[0])); err != nil {
			return err
		}
		first := s.records.Reserve(len(chunks))
		entries := make([]domain.IndexEntry, len(chunks))
		recs := make([]domain.VectorRecord, len(chunks))
		for i, ch := range chunks {
			id := first + uint64(i)
			entries[i] = domain.IndexEntry{GlobalID: id, Embedding: vectors[i]}
			recs[i] = domain.VectorRecord{
				GlobalID:   id,
				DocumentID: doc.ID,
				LocalIndex: ch.Index,
				Text:       ch.Text,
				Embedding:  vectors[i],
			}
		}
		// Readers resolve candidates from the store, so ids present only in
		// the index between these two steps are never returned.
		if err := s.index.Add(ctx, entries); err != nil {
			return fmt.Errorf("index add: %w", err)
		}
		if err := s.records.Commit(recs); err != nil {
			s.logger.Error("record commit failed after index add", "document_id", doc.ID, "error", err)
			return fmt.Errorf("record commit: %w", err)
		}
	}

	s.documents[doc.ID] = doc
	s.order = append(s.order, doc.ID)
	return nil
}

// Retrieve answers a question from the chunks of the allowed documents.
// Unknown document ids contribute nothing; unknown sessions are created.
func (s *RAGService) Retrieve(ctx context.Context, req RetrieveRequest) (*domain.AnswerResult, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}

	candidates, filenames := s.snapshot(req.DocumentIDs)

	var chunks []domain.ScoredChunk
	if len(candidates) > 0 {
		vec, err := s.embed(ctx, req.Question)
		if err != nil {
			s.logger.Warn("question embedding failed", "session_id", req.SessionID, "error", err)
			return nil, domain.NewOpError("retrieve", err)
		}
		hits, err := s.index.Query(ctx, vec, topK, candidates)
		if err != nil {
			return nil, domain.NewOpError("retrieve", fmt.Errorf("index query: %w", err))
		}
		chunks = make([]domain.ScoredChunk, 0, len(hits))
		for _, h := range hits {
			rec, ok := s.records.Get(h.GlobalID)
			if !ok {
				continue
			}
			chunks = append(chunks, domain.ScoredChunk{
				DocumentID: rec.DocumentID,
				Filename:   filenames[rec.DocumentID],
				ChunkID:    rec.GlobalID,
				LocalIndex: rec.LocalIndex,
				Text:       rec.Text,
				Score:      h.Score,
			})
		}
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	answer := strings.Join(texts, " ")

	s.sessions.AppendTurns(req.SessionID,
		domain.Turn{Role: domain.RoleUser, Content: req.Question},
		domain.Turn{Role: domain.RoleAssistant, Content: answer},
	)

	prompt := s.tokens.Count(req.Question)
	candidatesTokens := s.tokens.Count(answer)
	s.logger.Debug("question answered",
		"session_id", req.SessionID,
		"candidates", len(candidates),
		"results", len(chunks),
	)
	return &domain.AnswerResult{
		SessionID: req.SessionID,
		Question:  req.Question,
		Answer:    answer,
		Chunks:    chunks,
		Usage: domain.TokenUsage{
			PromptTokens:     prompt,
			CandidatesTokens: candidatesTokens,
			TotalTokens:      prompt + candidatesTokens,
		},
	}, nil
}

// snapshot resolves the record ids of the allowed documents as of now.
func (s *RAGService) snapshot(documentIDs []string) (map[uint64]struct{}, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make(map[uint64]struct{})
	filenames := make(map[string]string, len(documentIDs))
	for _, id := range documentIDs {
		doc, ok := s.documents[id]
		if !ok {
			continue
		}
		filenames[id] = doc.Filename
		for _, gid := range s.records.ByDocument(id) {
			candidates[gid] = struct{}{}
		}
	}
	return candidates, filenames
}

// GetSession returns the session's turns or domain.ErrNotFound.
func (s *RAGService) GetSession(sessionID string) ([]domain.Turn, error) {
	return s.sessions.Get(sessionID)
}

// GetDocument returns an ingested document or domain.ErrNotFound.
func (s *RAGService) GetDocument(documentID string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %q: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}

// Documents lists ingested documents in ingestion order.
func (s *RAGService) Documents() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.documents[id])
	}
	return out
}

// Stats reports the size of the in-memory state.
func (s *RAGService) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Documents: len(s.documents),
		Records:   s.records.Len(),
		Indexed:   s.index.Len(),
		Dimension: s.records.Dimension(),
		Sessions:  s.sessions.Len(),
	}
}
