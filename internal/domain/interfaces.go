package domain

import "context"

// Document represents a single uploaded text loaded into the system.
type Document struct {
	ID         string
	Filename   string
	Content    string
	ChunkCount int
}

// Chunk is a contiguous window of a document used for indexing.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
}

// VectorRecord is a chunk together with its embedding and stable global id.
type VectorRecord struct {
	GlobalID   uint64
	DocumentID string
	LocalIndex int
	Text       string
	Embedding  []float64
}

// IndexEntry is what a similarity index stores for a record.
type IndexEntry struct {
	GlobalID  uint64
	Embedding []float64
}

// Hit is a single similarity index match.
type Hit struct {
	GlobalID uint64
	Score    float64
}

// ScoredChunk represents a matching chunk with a relevance score.
type ScoredChunk struct {
	DocumentID string
	Filename   string
	ChunkID    uint64
	LocalIndex int
	Text       string
	Score      float64
}

// Role identifies the author of a session turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry of a session transcript.
type Turn struct {
	Role    Role
	Content string
}

// TokenUsage reports token counts for a question/answer exchange.
type TokenUsage struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}

// AnswerResult is the outcome of a retrieval call.
type AnswerResult struct {
	SessionID string
	Question  string
	Answer    string
	Chunks    []ScoredChunk
	Usage     TokenUsage
}

// IngestResult is the outcome of ingesting one document.
type IngestResult struct {
	DocumentID string
	Filename   string
	ChunkCount int
	Summary    string
}

// Embedder converts free text into a numeric vector representation.
// All vectors returned by one Embedder share the same dimension.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits document text into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(documentID, text string) ([]Chunk, error)
}

// Index stores embeddings keyed by global id and answers nearest-neighbor queries.
// Query returns at most k hits ordered best-first; ties are ordered by ascending
// global id. A non-nil candidates set restricts scoring to those ids.
type Index interface {
	Add(ctx context.Context, entries []IndexEntry) error
	Query(ctx context.Context, vector []float64, k int, candidates map[uint64]struct{}) ([]Hit, error)
	Len() int
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// TokenCounter counts model tokens in a text.
type TokenCounter interface {
	Count(text string) int
}
