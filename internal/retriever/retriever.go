// Package retriever turns a query into a ranked context set: embed,
// search the index, collapse overlap artifacts.
package retriever

import (
	"context"
	"fmt"

	"dirqa/internal/domain"
	"dirqa/internal/logctx"
)

// Config holds the retrieval parameters.
type Config struct {
	// Adjacency is the ordinal distance within which two chunks of the
	// same document count as overlap artifacts. 0 disables deduplication.
	Adjacency int
}

// Retriever embeds queries and searches the vector store.
type Retriever struct {
	embedder  domain.EmbeddingProvider
	store     domain.VectorStore
	adjacency int
}

func New(embedder domain.EmbeddingProvider, store domain.VectorStore, cfg Config) *Retriever {
	return &Retriever{
		embedder:  embedder,
		store:     store,
		adjacency: cfg.Adjacency,
	}
}

// Retrieve returns at most topK results in descending score order,
// deduplicated. An embedding failure propagates with no partial
// results: an empty set always means "nothing relevant", never "the
// backend broke".
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filter *domain.Filter) ([]domain.SearchResult, error) {
	log := logctx.From(ctx, nil)

	log.DebugContext(ctx, "query state", "stage", "embedding")
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	log.DebugContext(ctx, "query state", "stage", "searching")
	results, err := r.store.Search(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	deduped := Deduplicate(results, r.adjacency)
	if len(deduped) > topK {
		deduped = deduped[:topK]
	}
	log.DebugContext(ctx, "retrieved", "hits", len(results), "kept", len(deduped))
	return deduped, nil
}
