// Package tokens counts model tokens for usage reporting.
package tokens

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"docqa/internal/domain"
)

// DefaultEncoding is the BPE encoding used by OpenAI embedding and chat models.
const DefaultEncoding = "cl100k_base"

func init() {
	// BPE ranks come from files embedded in the loader module, never the network.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Tiktoken counts tokens with a tiktoken BPE encoding.
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
}

func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encoding, err)
	}
	return &Tiktoken{encoding: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// Words approximates tokens by whitespace-separated fields.
type Words struct{}

func (Words) Count(text string) int { return len(strings.Fields(text)) }

// New returns a tiktoken counter for encoding, or Words when encoding is
// empty or unknown.
func New(encoding string, logger *slog.Logger) domain.TokenCounter {
	if encoding == "" {
		return Words{}
	}
	counter, err := NewTiktoken(encoding)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("falling back to word token counts", "encoding", encoding, "error", err)
		return Words{}
	}
	return counter
}
