package retriever

import "dirqa/internal/domain"

// Deduplicate collapses overlap artifacts in a ranked result list:
// chunks of the same document within the adjacency window of an
// already-kept chunk are dropped. Results arrive in descending score
// order, so the kept representative is always the higher-scored one.
// Survivors keep their order. An adjacency of 0 disables deduplication.
func Deduplicate(results []domain.SearchResult, adjacency int) []domain.SearchResult {
	if adjacency <= 0 {
		return append([]domain.SearchResult(nil), results...)
	}
	kept := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		overlapped := false
		for _, k := range kept {
			if k.Chunk.DocumentID != r.Chunk.DocumentID {
				continue
			}
			d := k.Chunk.Ordinal - r.Chunk.Ordinal
			if d < 0 {
				d = -d
			}
			if d <= adjacency {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, r)
		}
	}
	return kept
}
