package vectorstore

import (
	"sort"

	"docqa/internal/domain"
)

// SortHits orders hits best-first with ascending global id as tie-break.
func SortHits(hits []domain.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].GlobalID < hits[j].GlobalID
	})
}
