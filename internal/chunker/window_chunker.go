package chunker

import (
	"fmt"

	"docqa/internal/domain"
)

const (
	// DefaultSize is the default number of characters per chunk.
	DefaultSize = 500
	// DefaultOverlap is the default number of characters shared by consecutive chunks.
	DefaultOverlap = 50
)

// WindowChunker splits text into fixed-size character windows with overlap.
// Lengths are counted in runes so a window never splits a UTF-8 sequence.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker validates the window parameters. It fails with
// domain.ErrInvalidConfig unless size > 0 and 0 <= overlap < size.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, size, overlap)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Size returns the window length.
func (c *WindowChunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive windows.
func (c *WindowChunker) Overlap() int { return c.overlap }

// Chunk returns windows [start, start+size) advancing start by size-overlap.
// The last window is the first one that reaches the end of text and may be
// shorter than size. Empty text yields no chunks.
func (c *WindowChunker) Chunk(documentID, text string) ([]domain.Chunk, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, Count(len(runes), c.size, c.overlap))
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Count is the number of windows Chunk produces for a text of n characters:
// ceil((n-overlap)/(size-overlap)) for n > size, 1 for 0 < n <= size.
func Count(n, size, overlap int) int {
	if n <= 0 {
		return 0
	}
	if n <= size {
		return 1
	}
	step := size - overlap
	return (n - overlap + step - 1) / step
}
