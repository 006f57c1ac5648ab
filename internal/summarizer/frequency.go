package summarizer

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"
)

// fallbackRunes bounds the summary of text that has no sentence punctuation.
const fallbackRunes = 280

// DefaultMaxSentences is used when Summarize is asked for zero sentences.
const DefaultMaxSentences = 5

// FrequencySummarizer is an extractive summarizer: a sentence scores the sum
// of its words' relative frequencies in the document, damped by the square
// root of its length.
type FrequencySummarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       defaultStopwords(),
	}
}

type rankedSentence struct {
	pos   int
	text  string
	score float64
}

// Summarize returns the maxSentences highest-scoring sentences in document order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	raw := s.sentencePattern.FindAllString(text, -1)
	if len(raw) == 0 {
		return truncateRunes(strings.TrimSpace(text), fallbackRunes), nil
	}

	tokenized := make([][]string, len(raw))
	for i, sent := range raw {
		tokenized[i] = s.tokenPattern.FindAllString(strings.ToLower(sent), -1)
	}
	weights := s.termWeights(tokenized)

	ranked := make([]rankedSentence, len(raw))
	for i, toks := range tokenized {
		ranked[i] = rankedSentence{pos: i, text: strings.TrimSpace(raw[i]), score: sentenceScore(toks, weights)}
	}
	slices.SortStableFunc(ranked, func(a, b rankedSentence) int { return cmp.Compare(b.score, a.score) })
	ranked = ranked[:min(maxSentences, len(ranked))]
	slices.SortFunc(ranked, func(a, b rankedSentence) int { return cmp.Compare(a.pos, b.pos) })

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.text
	}
	return strings.Join(out, " "), nil
}

// termWeights maps each non-stopword to its frequency relative to the most frequent one.
func (s *FrequencySummarizer) termWeights(sentences [][]string) map[string]float64 {
	counts := make(map[string]float64)
	peak := 0.0
	for _, toks := range sentences {
		for _, tok := range toks {
			if _, stop := s.stopwords[tok]; stop {
				continue
			}
			counts[tok]++
			peak = max(peak, counts[tok])
		}
	}
	if peak > 0 {
		for k := range counts {
			counts[k] /= peak
		}
	}
	return counts
}

func sentenceScore(tokens []string, weights map[string]float64) float64 {
	if len(tokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, tok := range tokens {
		sum += weights[tok]
	}
	return sum / math.Sqrt(float64(len(tokens)))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func defaultStopwords() map[string]struct{} {
	words := strings.Fields(`a an the and or but if then else for to of in on at by with as is are was
		were be been being it this that these those from up down over under again further than so such
		into about between through during before after above below out off own same too very can will
		just don should now`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
