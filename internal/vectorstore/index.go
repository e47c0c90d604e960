// Package vectorstore holds the in-memory search core shared by the
// index backends. Backends own locking and durability; the core owns
// scoring, filtering and tie-breaking.
package vectorstore

import (
	"fmt"
	"sort"
	"time"

	"dirqa/internal/domain"
)

// Index is one generation of the vector index: the document registry
// plus all entries in insertion order. Backends guard it with their own
// lock and swap in a freshly built Index on rebuild, so readers observe
// either the old or the new generation, never a mix.
type Index struct {
	docs      []domain.Document
	docByID   map[string]domain.Document
	entries   []domain.IndexEntry
	byChunkID map[string]int
	dimension int
	model     string
	builtAt   time.Time
}

// NewIndex builds an index generation from rebuild contents. The
// dimension is taken from the snapshot or, when unset, from the first
// vector; every vector must match it.
func NewIndex(snap domain.Snapshot) (*Index, error) {
	dim := snap.Dimension
	if dim == 0 && len(snap.Entries) > 0 {
		dim = len(snap.Entries[0].Vector)
	}
	idx := &Index{
		docs:      append([]domain.Document(nil), snap.Documents...),
		docByID:   make(map[string]domain.Document, len(snap.Documents)),
		byChunkID: make(map[string]int, len(snap.Entries)),
		dimension: dim,
		model:     snap.EmbeddingModel,
		builtAt:   snap.BuiltAt,
	}
	for _, d := range idx.docs {
		idx.docByID[d.ID] = d
	}
	for _, e := range snap.Entries {
		if err := idx.Put(e); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Validate checks that an entry could be stored without changing the
// index dimension.
func (idx *Index) Validate(entry domain.IndexEntry) error {
	if entry.Chunk.ChunkID == "" {
		return fmt.Errorf("index entry without chunk id")
	}
	if len(entry.Vector) == 0 {
		return fmt.Errorf("index entry %s without vector", entry.Chunk.ChunkID)
	}
	if idx.dimension != 0 && len(entry.Vector) != idx.dimension {
		return fmt.Errorf("%w: entry %s has dimension %d, index has %d",
			domain.ErrConfiguration, entry.Chunk.ChunkID, len(entry.Vector), idx.dimension)
	}
	return nil
}

// Put adds or replaces an entry keyed by its chunk id. A replaced entry
// keeps its original insertion position.
func (idx *Index) Put(entry domain.IndexEntry) error {
	if err := idx.Validate(entry); err != nil {
		return err
	}
	if idx.dimension == 0 {
		idx.dimension = len(entry.Vector)
	}
	if pos, ok := idx.byChunkID[entry.Chunk.ChunkID]; ok {
		idx.entries[pos] = entry
		return nil
	}
	idx.byChunkID[entry.Chunk.ChunkID] = len(idx.entries)
	idx.entries = append(idx.entries, entry)
	return nil
}

// Search scores every entry passing the filter against the query vector
// (dot product; vectors are L2-normalized, so this is cosine
// similarity) and returns the k best. Equal scores keep insertion
// order.
func (idx *Index) Search(vector []float32, k int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: top k must be positive, got %d", domain.ErrConfiguration, k)
	}
	if len(idx.entries) == 0 {
		return nil, nil
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index has %d",
			domain.ErrConfiguration, len(vector), idx.dimension)
	}

	results := make([]domain.SearchResult, 0, len(idx.entries))
	for _, e := range idx.entries {
		if !filter.Allows(e.Chunk.DocumentID) {
			continue
		}
		results = append(results, domain.SearchResult{
			Chunk:    e.Chunk,
			Document: idx.document(e.Chunk.DocumentID),
			Score:    dot(e.Vector, vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Documents returns the registry in insertion order.
func (idx *Index) Documents() []domain.Document {
	return append([]domain.Document(nil), idx.docs...)
}

// Stats summarizes the index contents.
func (idx *Index) Stats() domain.IndexStats {
	counts := make(map[string]int, len(idx.docs))
	for _, e := range idx.entries {
		counts[e.Chunk.DocumentID]++
	}
	stats := domain.IndexStats{
		TotalChunks:    len(idx.entries),
		Dimension:      idx.dimension,
		EmbeddingModel: idx.model,
		BuiltAt:        idx.builtAt,
	}
	for _, d := range idx.docs {
		stats.Documents = append(stats.Documents, domain.DocumentStats{Document: d, Chunks: counts[d.ID]})
	}
	return stats
}

func (idx *Index) document(id string) domain.Document {
	if d, ok := idx.docByID[id]; ok {
		return d
	}
	return domain.Document{ID: id}
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
