package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"docqa/internal/domain"
)

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) (*SentenceChunker, error) {
	if sentencesPerChunk <= 0 {
		return nil, fmt.Errorf("%w: sentences per chunk must be positive, got %d", domain.ErrInvalidConfig, sentencesPerChunk)
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		return nil, fmt.Errorf("%w: overlap sentences must be in [0, %d), got %d", domain.ErrInvalidConfig, sentencesPerChunk, overlapSentences)
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}, nil
}

func (c *SentenceChunker) Chunk(documentID, text string) ([]domain.Chunk, error) {
	var sentences []string
	last := 0
	for _, loc := range c.splitter.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[loc[0]:loc[1]])
		last = loc[1]
	}
	// Trailing text without terminal punctuation is still a sentence.
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		sentences = append(sentences, tail)
	}
	if len(sentences) == 0 {
		return nil, nil
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	var chunks []domain.Chunk
	i := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       strings.Join(sentences[i:end], " "),
		})
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks, nil
}
