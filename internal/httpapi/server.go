// Package httpapi exposes document upload and question answering over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"docqa/internal/domain"
	"docqa/internal/extract"
	"docqa/internal/service"
)

// DefaultMaxUploadBytes bounds the size of an uploaded file.
const DefaultMaxUploadBytes = 10 << 20

const maxAskBytes = 1 << 20

// Engine is the part of the retrieval service the API serves.
type Engine interface {
	Ingest(ctx context.Context, filename, text string) (domain.IngestResult, error)
	Retrieve(ctx context.Context, req service.RetrieveRequest) (*domain.AnswerResult, error)
	GetSession(sessionID string) ([]domain.Turn, error)
	GetDocument(documentID string) (domain.Document, error)
	Documents() []domain.Document
	Stats() service.Stats
}

// Server is the HTTP front end of an Engine.
type Server struct {
	engine         Engine
	logger         *slog.Logger
	maxUploadBytes int64
}

type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxUploadBytes bounds the accepted upload size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func New(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:         engine,
		logger:         slog.Default(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	mux.HandleFunc("GET /documents", s.handleDocuments)
	mux.HandleFunc("GET /documents/{id}", s.handleDocument)
	mux.HandleFunc("GET /stats", s.handleStats)

	return s.logRequests(corsMiddleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("file exceeds %d bytes", s.maxUploadBytes)})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("file exceeds %d bytes", s.maxUploadBytes)})
			return
		}
		s.writeError(w, fmt.Errorf("%w: multipart field \"file\" is required: %v", domain.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, err))
		return
	}
	text, err := extract.Text(header.Filename, data)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.engine.Ingest(r.Context(), header.Filename, text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		DocumentID: res.DocumentID,
		Filename:   res.Filename,
		ChunkCount: res.ChunkCount,
		Summary:    res.Summary,
		Message:    "Document processed successfully.",
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxAskBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("request body exceeds %d bytes", maxAskBytes)})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBytes)
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("request body exceeds %d bytes", maxAskBytes)})
			return
		}
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	res, err := s.engine.Retrieve(r.Context(), service.RetrieveRequest{
		SessionID:   req.SessionID,
		DocumentIDs: req.DocumentIDs,
		Question:    req.Question,
		TopK:        req.TopK,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAskResponse(res))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	turns, err := s.engine.GetSession(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := SessionResponse{SessionID: id, Turns: make([]TurnInfo, len(turns))}
	for i, t := range turns {
		out.Turns[i] = TurnInfo{Role: string(t.Role), Content: t.Content}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.engine.Documents()
	out := make([]DocumentInfo, len(docs))
	for i, d := range docs {
		out[i] = newDocumentInfo(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.engine.GetDocument(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentInfo(doc))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{
		Documents: st.Documents,
		Records:   st.Records,
		Indexed:   st.Indexed,
		Dimension: st.Dimension,
		Sessions:  st.Sessions,
	})
}

// StatusFor maps an error from the domain taxonomy to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
