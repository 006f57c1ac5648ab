package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docqa/internal/domain"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// HashingEmbedderConfig configures the offline feature-hashing embedder.
type HashingEmbedderConfig struct {
	Bigrams bool `yaml:"bigrams"`
}

// RateLimitConfig throttles calls to the embedding backend. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                 `yaml:"type"`
	Dimension int                    `yaml:"dimension"`
	Hashing   *HashingEmbedderConfig `yaml:"hashing,omitempty"`
	OpenAI    *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	RateLimit RateLimitConfig        `yaml:"rate_limit"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	Size              int    `yaml:"size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the similarity index implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig tunes question answering and ingestion.
type RetrievalConfig struct {
	TopK             int `yaml:"top_k"`
	EmbedConcurrency int `yaml:"embed_concurrency"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// TokensConfig selects the tiktoken encoding used for usage reporting.
type TokensConfig struct {
	Encoding string `yaml:"encoding"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Tokens      TokensConfig      `yaml:"tokens"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Keys present in data win, including
// explicit zeros; empty strings and zero sizes are filled afterwards.
func Parse(data []byte) (*AppConfig, error) {
	cfg := Default()
	cfg.Embedder.OpenAI = defaultOpenAI()
	cfg.VectorStore.Qdrant = defaultQdrant()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects parameter combinations the chunker and retrieval engine cannot run with.
func (c *AppConfig) Validate() error {
	switch c.Chunker.Type {
	case "window":
		if c.Chunker.Size <= 0 {
			return fmt.Errorf("%w: chunker.size must be positive, got %d", domain.ErrInvalidConfig, c.Chunker.Size)
		}
		if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
			return fmt.Errorf("%w: chunker.overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, c.Chunker.Size, c.Chunker.Overlap)
		}
	case "sentence":
		if c.Chunker.SentencesPerChunk <= 0 || c.Chunker.OverlapSentences < 0 || c.Chunker.OverlapSentences >= c.Chunker.SentencesPerChunk {
			return fmt.Errorf("%w: sentence chunker needs 0 <= overlap_sentences < sentences_per_chunk", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown chunker type %q", domain.ErrInvalidConfig, c.Chunker.Type)
	}

	switch c.Embedder.Type {
	case "hashing":
		if c.Embedder.Dimension <= 0 {
			return fmt.Errorf("%w: embedder.dimension must be positive, got %d", domain.ErrInvalidConfig, c.Embedder.Dimension)
		}
	case "openai":
	default:
		return fmt.Errorf("%w: unknown embedder type %q", domain.ErrInvalidConfig, c.Embedder.Type)
	}

	switch c.VectorStore.Type {
	case "memory":
	case "qdrant":
		if c.VectorStore.Qdrant == nil || c.VectorStore.Qdrant.URL == "" {
			return fmt.Errorf("%w: vector_store.qdrant.url is required", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector store type %q", domain.ErrInvalidConfig, c.VectorStore.Type)
	}

	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("%w: retrieval.top_k must not be negative, got %d", domain.ErrInvalidConfig, c.Retrieval.TopK)
	}
	if c.Retrieval.EmbedConcurrency < 0 {
		return fmt.Errorf("%w: retrieval.embed_concurrency must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "hashing", Dimension: 384, Hashing: &HashingEmbedderConfig{}},
		Chunker:     ChunkerConfig{Type: "window", Size: 500, Overlap: 50, SentencesPerChunk: 5, OverlapSentences: 1},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Retrieval:   RetrievalConfig{TopK: 5, EmbedConcurrency: 4},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 5},
		Tokens:      TokensConfig{Encoding: "cl100k_base"},
		Server:      ServerConfig{Addr: ":8000", MaxUploadBytes: 10 << 20},
		Log:         LogConfig{Level: "info", Format: "json"},
	}
	return cfg
}

func defaultOpenAI() *OpenAIEmbedderConfig {
	return &OpenAIEmbedderConfig{
		BaseURL:     "https://api.openai.com/v1",
		APIKeyEnv:   "OPENAI_API_KEY",
		Model:       "text-embedding-3-small",
		TimeoutSecs: 30,
		MaxRetries:  2,
	}
}

func defaultQdrant() *QdrantConfig {
	return &QdrantConfig{Collection: "docqa_chunks", TimeoutSecs: 10}
}

// applyConfigDefaults fills fields whose zero value is never meaningful and
// drops backend sections the selected types do not use.
func applyConfigDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Type == "hashing" && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = def.Embedder.Dimension
	}
	if cfg.Embedder.Type != "hashing" {
		cfg.Embedder.Hashing = nil
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = defaultOpenAI()
		}
		oc, od := cfg.Embedder.OpenAI, defaultOpenAI()
		if oc.BaseURL == "" {
			oc.BaseURL = od.BaseURL
		}
		if oc.APIKeyEnv == "" {
			oc.APIKeyEnv = od.APIKeyEnv
		}
		if oc.Model == "" {
			oc.Model = od.Model
		}
		if oc.TimeoutSecs <= 0 {
			oc.TimeoutSecs = od.TimeoutSecs
		}
	} else {
		cfg.Embedder.OpenAI = nil
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = def.Chunker.Type
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = def.Chunker.Size
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = def.Chunker.SentencesPerChunk
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	if cfg.VectorStore.Type != "qdrant" {
		cfg.VectorStore.Qdrant = nil
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Collection == "" {
			q.Collection = defaultQdrant().Collection
		}
		if q.TimeoutSecs <= 0 {
			q.TimeoutSecs = defaultQdrant().TimeoutSecs
		}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.EmbedConcurrency == 0 {
		cfg.Retrieval.EmbedConcurrency = def.Retrieval.EmbedConcurrency
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = def.Summarizer.Type
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = def.Server.MaxUploadBytes
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
