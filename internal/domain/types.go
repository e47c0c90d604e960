package domain

import (
	"fmt"
	"time"
)

// Document identifies one source directive loaded into the index.
type Document struct {
	ID       string
	Name     string
	Category string
}

// Chunk is a bounded contiguous span of a document's text, the unit of
// indexing and retrieval. Start and End are byte offsets into the
// document's normalized full text.
type Chunk struct {
	ChunkID    string
	DocumentID string
	Ordinal    int
	Text       string
	Start      int
	End        int
}

// ChunkID builds the canonical chunk key for a document ordinal.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s:%d", documentID, ordinal)
}

// IndexEntry pairs a chunk with its embedding vector inside the store.
type IndexEntry struct {
	Chunk  Chunk
	Vector []float32
}

// SearchResult is a matching chunk with its source document and relevance score.
type SearchResult struct {
	Chunk    Chunk
	Document Document
	Score    float64
}

// Filter restricts a search to entries from the given documents.
// A nil filter or an empty id set matches every document.
type Filter struct {
	DocumentIDs []string
}

// Allows reports whether entries of the given document pass the filter.
func (f *Filter) Allows(documentID string) bool {
	if f == nil || len(f.DocumentIDs) == 0 {
		return true
	}
	for _, id := range f.DocumentIDs {
		if id == documentID {
			return true
		}
	}
	return false
}

// Question is one retrieval query as issued by a caller.
type Question struct {
	Text   string
	TopK   int
	Filter *Filter
}

// Citation points from an answer back to one chunk that was part of its
// generation context.
type Citation struct {
	DocumentID   string
	DocumentName string
	Ordinal      int
	Score        float64
}

// Answer is a generated response together with the citations for exactly
// the chunks that were included in its context. An answer with no
// citations means no relevant content was found; it is not an error.
type Answer struct {
	Text      string
	Citations []Citation
}

// Snapshot is the complete replacement contents for an index rebuild.
type Snapshot struct {
	Documents      []Document
	Entries        []IndexEntry
	Dimension      int
	EmbeddingModel string
	BuiltAt        time.Time
}

// DocumentStats counts the indexed chunks of one document.
type DocumentStats struct {
	Document Document
	Chunks   int
}

// IndexStats describes the current contents of the vector index.
type IndexStats struct {
	Documents      []DocumentStats
	TotalChunks    int
	Dimension      int
	EmbeddingModel string
	BuiltAt        time.Time
}
