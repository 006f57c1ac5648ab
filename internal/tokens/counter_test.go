package tokens

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords_Count(t *testing.T) {
	assert.Equal(t, 0, Words{}.Count(""))
	assert.Equal(t, 0, Words{}.Count("   \n\t"))
	assert.Equal(t, 4, Words{}.Count("Hello  Gemini\nRAG system"))
}

func TestNew_EmptyEncodingUsesWords(t *testing.T) {
	assert.IsType(t, Words{}, New("", nil))
}

func TestNew_UnknownEncodingFallsBack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.IsType(t, Words{}, New("no-such-encoding", logger))
}

func TestNew_DefaultEncodingLoadsOffline(t *testing.T) {
	counter := New(DefaultEncoding, nil)
	require.IsType(t, &Tiktoken{}, counter)
	assert.Equal(t, 0, counter.Count(""))
	assert.Equal(t, 2, counter.Count("hello world"))
}
