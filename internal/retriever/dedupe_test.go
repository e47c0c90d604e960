package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dirqa/internal/domain"
)

func result(docID string, ordinal int, score float64) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{
			ChunkID:    domain.ChunkID(docID, ordinal),
			DocumentID: docID,
			Ordinal:    ordinal,
		},
		Score: score,
	}
}

func TestDeduplicate(t *testing.T) {
	cases := []struct {
		name      string
		adjacency int
		in        []domain.SearchResult
		want      []string
	}{
		{
			name:      "adjacent chunks collapse to higher scored",
			adjacency: 1,
			in:        []domain.SearchResult{result("a", 2, 0.9), result("a", 3, 0.8)},
			want:      []string{"a:2"},
		},
		{
			name:      "non-adjacent chunks survive",
			adjacency: 1,
			in:        []domain.SearchResult{result("a", 0, 0.9), result("a", 4, 0.8)},
			want:      []string{"a:0", "a:4"},
		},
		{
			name:      "different documents never collapse",
			adjacency: 1,
			in:        []domain.SearchResult{result("a", 1, 0.9), result("b", 1, 0.8), result("b", 2, 0.7)},
			want:      []string{"a:1", "b:1"},
		},
		{
			name:      "zero adjacency disables deduplication",
			adjacency: 0,
			in:        []domain.SearchResult{result("a", 1, 0.9), result("a", 2, 0.8)},
			want:      []string{"a:1", "a:2"},
		},
		{
			name:      "wider window suppresses more",
			adjacency: 2,
			in:        []domain.SearchResult{result("a", 0, 0.9), result("a", 2, 0.8), result("a", 5, 0.7)},
			want:      []string{"a:0", "a:5"},
		},
		{
			name:      "chunk adjacent only to a dropped chunk survives",
			adjacency: 1,
			in:        []domain.SearchResult{result("a", 0, 0.9), result("a", 1, 0.8), result("a", 2, 0.7)},
			want:      []string{"a:0", "a:2"},
		},
		{
			name:      "empty input",
			adjacency: 1,
			in:        nil,
			want:      []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Deduplicate(tc.in, tc.adjacency)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.Chunk.ChunkID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestDeduplicateDoesNotMutateInput(t *testing.T) {
	in := []domain.SearchResult{result("a", 0, 0.9), result("a", 1, 0.8)}
	_ = Deduplicate(in, 1)
	assert.Equal(t, "a:0", in[0].Chunk.ChunkID)
	assert.Equal(t, "a:1", in[1].Chunk.ChunkID)
	assert.Len(t, in, 2)
}
