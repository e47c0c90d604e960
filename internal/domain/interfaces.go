package domain

import "context"

// EmbeddingProvider converts free text into a fixed-dimension vector.
// Vectors from one provider instance always share the same dimension.
type EmbeddingProvider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerationProvider produces answer text for a prompt.
type GenerationProvider interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Chunker splits a document's full text into chunks suitable for
// retrieval indexing.
type Chunker interface {
	Chunk(doc Document, text string) ([]Chunk, error)
}

// VectorStore persists index entries and serves similarity search.
// Reads may run concurrently; writes serialize against reads, and
// Rebuild replaces the whole index atomically.
type VectorStore interface {
	Upsert(ctx context.Context, entry IndexEntry) error
	Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]SearchResult, error)
	Rebuild(ctx context.Context, snap Snapshot) error
	Documents(ctx context.Context) ([]Document, error)
	Stats(ctx context.Context) (IndexStats, error)
	Close() error
}

// Retriever returns a ranked, deduplicated context set for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, filter *Filter) ([]SearchResult, error)
}

// Composer assembles retrieval results into a generation context and
// returns the cited answer.
type Composer interface {
	Compose(ctx context.Context, query string, results []SearchResult) (*Answer, error)
}

// Assistant is the query-time surface of the application core.
type Assistant interface {
	Ask(ctx context.Context, q Question) (*Answer, error)
	Documents(ctx context.Context) ([]Document, error)
	Stats(ctx context.Context) (IndexStats, error)
}
