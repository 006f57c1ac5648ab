package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
chunker:
  size: 200
retrieval:
  top_k: 3
`))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedder.Type)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 30, cfg.Embedder.OpenAI.TimeoutSecs)
	assert.Equal(t, 2, cfg.Embedder.OpenAI.MaxRetries)
	assert.Nil(t, cfg.Embedder.Hashing)
	assert.Nil(t, cfg.VectorStore.Qdrant)

	assert.Equal(t, "window", cfg.Chunker.Type)
	assert.Equal(t, 200, cfg.Chunker.Size)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 4, cfg.Retrieval.EmbedConcurrency)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "cl100k_base", cfg.Tokens.Encoding)
	assert.NoError(t, cfg.Validate())
}

func TestParse_KeepsExplicitZeros(t *testing.T) {
	cfg, err := Parse([]byte(`
embedder:
  type: openai
  openai:
    max_retries: 0
chunker:
  overlap: 0
  overlap_sentences: 0
summarizer:
  max_sentences: 0
tokens:
  encoding: ""
`))
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, 0, cfg.Embedder.OpenAI.MaxRetries)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 500, cfg.Chunker.Size)
	assert.Equal(t, 0, cfg.Chunker.Overlap)
	assert.Equal(t, 0, cfg.Chunker.OverlapSentences)
	assert.Equal(t, 0, cfg.Summarizer.MaxSentences)
	assert.Equal(t, "", cfg.Tokens.Encoding)
	assert.NoError(t, cfg.Validate())
}

func TestParse_NullSectionGetsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
embedder:
  type: openai
  openai:
vector_store:
  type: qdrant
  qdrant:
    url: http://localhost:6333
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, 2, cfg.Embedder.OpenAI.MaxRetries)
	assert.Equal(t, "docqa_chunks", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, 10, cfg.VectorStore.Qdrant.TimeoutSecs)
	assert.NoError(t, cfg.Validate())
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("chunker: [unclosed"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"overlap equals size", func(c *AppConfig) { c.Chunker.Overlap = c.Chunker.Size }},
		{"negative overlap", func(c *AppConfig) { c.Chunker.Overlap = -1 }},
		{"zero size", func(c *AppConfig) { c.Chunker.Size = 0 }},
		{"negative top k", func(c *AppConfig) { c.Retrieval.TopK = -1 }},
		{"unknown chunker", func(c *AppConfig) { c.Chunker.Type = "paragraph" }},
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "word2vec" }},
		{"zero hashing dimension", func(c *AppConfig) { c.Embedder.Dimension = 0 }},
		{"qdrant without url", func(c *AppConfig) { c.VectorStore.Type = "qdrant" }},
		{"bad sentence overlap", func(c *AppConfig) {
			c.Chunker.Type = "sentence"
			c.Chunker.SentencesPerChunk = 2
			c.Chunker.OverlapSentences = 2
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfig)
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.VectorStore = VectorStoreConfig{Type: "qdrant", Qdrant: &QdrantConfig{URL: "http://localhost:6333"}}
	require.NoError(t, Save(path, cfg))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qdrant", loaded.VectorStore.Type)
	assert.Equal(t, "docqa_chunks", loaded.VectorStore.Qdrant.Collection)
	assert.Equal(t, 10, loaded.VectorStore.Qdrant.TimeoutSecs)
	assert.NoError(t, loaded.Validate())
}
