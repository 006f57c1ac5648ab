package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/service"
	"docqa/internal/session"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
)

type downEmbedder struct{}

func (downEmbedder) Name() string { return "down" }

func (downEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("connection refused")
}

func newTestServer(t *testing.T, embedder domain.Embedder, opts ...Option) *httptest.Server {
	t.Helper()
	c, err := chunker.NewWindowChunker(20, 5)
	require.NoError(t, err)
	svc, err := service.NewRAGService(c, embedder, vectorstore.NewRecords(), memory.NewIndex(), session.NewLedger())
	require.NoError(t, err)
	ts := httptest.NewServer(New(svc, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func hashingServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	e, err := hashing.NewEmbedder(128)
	require.NoError(t, err)
	return newTestServer(t, e, opts...)
}

func upload(t *testing.T, ts *httptest.Server, filename string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func ask(t *testing.T, ts *httptest.Server, req AskRequest) *http.Response {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/ask", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts := hashingServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp.Body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUploadThenAsk(t *testing.T) {
	ts := hashingServer(t)

	resp := upload(t, ts, "notes.txt", []byte("Tomatoes need sun. Basil likes water."))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	up := decode[UploadResponse](t, resp.Body)
	assert.Equal(t, "notes.txt", up.Filename)
	assert.Equal(t, chunker.Count(len("Tomatoes need sun. Basil likes water."), 20, 5), up.ChunkCount)
	require.NotEmpty(t, up.DocumentID)

	resp = ask(t, ts, AskRequest{SessionID: "s1", DocumentIDs: []string{up.DocumentID}, Question: "basil likes", TopK: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[AskResponse](t, resp.Body)
	assert.Equal(t, "s1", out.SessionID)
	require.Len(t, out.SourceChunks, 1)
	assert.Equal(t, 1, out.BatchSize)
	assert.Contains(t, out.SourceChunks[0].Text, "Basil")
	assert.Equal(t, "notes.txt", out.SourceChunks[0].Filename)
	assert.Equal(t, out.SourceChunks[0].Text, out.Answer)
	assert.Equal(t, out.TokensUsed.PromptTokens+out.TokensUsed.CandidatesTokens, out.TokensUsed.TotalTokens)

	sresp, err := http.Get(ts.URL + "/sessions/s1")
	require.NoError(t, err)
	defer sresp.Body.Close()
	require.Equal(t, http.StatusOK, sresp.StatusCode)
	sess := decode[SessionResponse](t, sresp.Body)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, "user", sess.Turns[0].Role)
	assert.Equal(t, "basil likes", sess.Turns[0].Content)
	assert.Equal(t, "assistant", sess.Turns[1].Role)

	dresp, err := http.Get(ts.URL + "/documents/" + up.DocumentID)
	require.NoError(t, err)
	defer dresp.Body.Close()
	require.Equal(t, http.StatusOK, dresp.StatusCode)
	assert.Equal(t, DocumentInfo{ID: up.DocumentID, Filename: "notes.txt", ChunkCount: up.ChunkCount}, decode[DocumentInfo](t, dresp.Body))

	lresp, err := http.Get(ts.URL + "/documents")
	require.NoError(t, err)
	defer lresp.Body.Close()
	assert.Len(t, decode[[]DocumentInfo](t, lresp.Body), 1)

	stresp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer stresp.Body.Close()
	st := decode[StatsResponse](t, stresp.Body)
	assert.Equal(t, 1, st.Documents)
	assert.Equal(t, up.ChunkCount, st.Records)
	assert.Equal(t, 128, st.Dimension)
	assert.Equal(t, 1, st.Sessions)
}

func TestAsk_EmptyDocumentSet(t *testing.T) {
	ts := hashingServer(t)
	resp := ask(t, ts, AskRequest{SessionID: "s", DocumentIDs: []string{}, Question: "anything"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[AskResponse](t, resp.Body)
	assert.Empty(t, out.SourceChunks)
	assert.Equal(t, "", out.Answer)
	assert.Equal(t, 0, out.BatchSize)
}

func TestAsk_BadRequests(t *testing.T) {
	ts := hashingServer(t)

	resp, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decode[errorResponse](t, resp.Body).Error)

	big := `{"session_id":"s","question":"` + strings.Repeat("a", maxAskBytes) + `"}`
	resp2, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader(big))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp2.StatusCode)
}

func TestAsk_BlankFieldsAreOrdinary(t *testing.T) {
	ts := hashingServer(t)
	up := decode[UploadResponse](t, upload(t, ts, "notes.txt", []byte("Basil likes water.")).Body)

	resp := ask(t, ts, AskRequest{DocumentIDs: []string{up.DocumentID}, Question: "basil"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[AskResponse](t, resp.Body).SourceChunks)

	resp = ask(t, ts, AskRequest{SessionID: "s", DocumentIDs: []string{}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[AskResponse](t, resp.Body)
	assert.Empty(t, out.SourceChunks)
	assert.Equal(t, "", out.Answer)

	sresp, err := http.Get(ts.URL + "/sessions/s")
	require.NoError(t, err)
	defer sresp.Body.Close()
	require.Equal(t, http.StatusOK, sresp.StatusCode)
	assert.Len(t, decode[SessionResponse](t, sresp.Body).Turns, 2)
}

func TestNotFound(t *testing.T) {
	ts := hashingServer(t)
	for _, path := range []string{"/sessions/missing", "/documents/missing"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestUpload_Errors(t *testing.T) {
	ts := hashingServer(t, WithMaxUploadBytes(1024))

	assert.Equal(t, http.StatusUnsupportedMediaType, upload(t, ts, "sheet.xlsx", []byte("PK")).StatusCode)
	assert.Equal(t, http.StatusBadRequest, upload(t, ts, "scan.pdf", []byte("%PDF-1.4")).StatusCode)
	assert.Equal(t, http.StatusBadRequest, upload(t, ts, "broken.docx", []byte("not a zip")).StatusCode)
	assert.Equal(t, http.StatusRequestEntityTooLarge, upload(t, ts, "big.txt", bytes.Repeat([]byte("a"), 4096)).StatusCode)

	resp, err := http.Post(ts.URL+"/upload", "text/plain", strings.NewReader("raw"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_Latin1(t *testing.T) {
	ts := hashingServer(t)
	resp := upload(t, ts, "legacy.txt", []byte{'c', 'a', 'f', 0xe9})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	up := decode[UploadResponse](t, resp.Body)
	assert.Equal(t, 1, up.ChunkCount)
}

func TestUpload_PDF(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "extract", "testdata", "hello.pdf"))
	require.NoError(t, err)

	ts := hashingServer(t)
	resp := upload(t, ts, "hello.pdf", data)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	up := decode[UploadResponse](t, resp.Body)
	assert.Equal(t, "hello.pdf", up.Filename)
	assert.Equal(t, 1, up.ChunkCount)

	out := decode[AskResponse](t, ask(t, ts, AskRequest{SessionID: "s", DocumentIDs: []string{up.DocumentID}, Question: "hello"}).Body)
	require.Len(t, out.SourceChunks, 1)
	assert.Equal(t, "Hello PDF", out.Answer)
}

func TestEmbeddingUnavailable(t *testing.T) {
	ts := newTestServer(t, downEmbedder{})
	resp := upload(t, ts, "a.txt", []byte("some text"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidConfig, http.StatusBadRequest},
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{domain.NewOpError("ingest", domain.ErrDimensionMismatch), http.StatusConflict},
		{domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}
