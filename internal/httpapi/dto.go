package httpapi

import "docqa/internal/domain"

// AskRequest is the body of POST /ask.
type AskRequest struct {
	SessionID   string   `json:"session_id"`
	DocumentIDs []string `json:"document_ids"`
	Question    string   `json:"question"`
	TopK        int      `json:"top_k,omitempty"`
}

// SourceChunk is one retrieved chunk in an ask response.
type SourceChunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkID    uint64  `json:"chunk_id"`
	LocalIndex int     `json:"local_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// TokensUsed reports approximate token counts of an answer.
type TokensUsed struct {
	PromptTokens     int `json:"prompt_tokens"`
	CandidatesTokens int `json:"candidates_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AskResponse is returned by POST /ask.
type AskResponse struct {
	SessionID    string        `json:"session_id"`
	Question     string        `json:"question"`
	Answer       string        `json:"answer"`
	SourceChunks []SourceChunk `json:"source_chunks"`
	BatchSize    int           `json:"batch_size"`
	TokensUsed   TokensUsed    `json:"tokens_used"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	Summary    string `json:"summary,omitempty"`
	Message    string `json:"message"`
}

// DocumentInfo describes an ingested document without its content.
type DocumentInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// TurnInfo is one entry of a session transcript.
type TurnInfo struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionResponse is returned by GET /sessions/{id}.
type SessionResponse struct {
	SessionID string     `json:"session_id"`
	Turns     []TurnInfo `json:"turns"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	Documents int `json:"documents"`
	Records   int `json:"records"`
	Indexed   int `json:"indexed"`
	Dimension int `json:"dimension"`
	Sessions  int `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newAskResponse(res *domain.AnswerResult) AskResponse {
	chunks := make([]SourceChunk, len(res.Chunks))
	for i, ch := range res.Chunks {
		chunks[i] = SourceChunk{
			DocumentID: ch.DocumentID,
			Filename:   ch.Filename,
			ChunkID:    ch.ChunkID,
			LocalIndex: ch.LocalIndex,
			Text:       ch.Text,
			Score:      ch.Score,
		}
	}
	return AskResponse{
		SessionID:    res.SessionID,
		Question:     res.Question,
		Answer:       res.Answer,
		SourceChunks: chunks,
		BatchSize:    len(chunks),
		TokensUsed: TokensUsed{
			PromptTokens:     res.Usage.PromptTokens,
			CandidatesTokens: res.Usage.CandidatesTokens,
			TotalTokens:      res.Usage.TotalTokens,
		},
	}
}

func newDocumentInfo(doc domain.Document) DocumentInfo {
	return DocumentInfo{ID: doc.ID, Filename: doc.Filename, ChunkCount: doc.ChunkCount}
}
