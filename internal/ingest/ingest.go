// Package ingest builds the vector index from the configured document
// manifest: extract, chunk, embed, then one atomic rebuild. A failure
// anywhere before the rebuild leaves the existing index untouched.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"dirqa/internal/domain"
	"dirqa/internal/extract"
)

// Source is one manifest entry: a document to index.
type Source struct {
	Path     string
	Name     string
	Category string
	ID       string
}

// Progress reports one document worked through the pipeline.
type Progress struct {
	Document domain.Document
	Path     string
	Chunks   int
}

// Builder runs the build pipeline against a store.
type Builder struct {
	chunker  domain.Chunker
	embedder domain.EmbeddingProvider
	store    domain.VectorStore
	logger   *slog.Logger
}

func NewBuilder(chunker domain.Chunker, embedder domain.EmbeddingProvider, store domain.VectorStore, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{chunker: chunker, embedder: embedder, store: store, logger: logger}
}

// Build ingests the manifest in order and atomically replaces the index
// contents, returning the resulting index statistics. Rebuilding twice
// from the same manifest yields a search-equivalent index. The progress
// callback, when non-nil, fires once per document after chunking.
func (b *Builder) Build(ctx context.Context, sources []Source, progress func(Progress)) (domain.IndexStats, error) {
	if len(sources) == 0 {
		return domain.IndexStats{}, fmt.Errorf("%w: no documents configured", domain.ErrConfiguration)
	}

	started := time.Now()
	seen := make(map[string]struct{}, len(sources))
	var (
		documents []domain.Document
		chunks    []domain.Chunk
		texts     []string
	)
	for _, src := range sources {
		doc, err := resolve(src)
		if err != nil {
			return domain.IndexStats{}, err
		}
		if _, dup := seen[doc.ID]; dup {
			return domain.IndexStats{}, fmt.Errorf("%w: duplicate document id %q", domain.ErrConfiguration, doc.ID)
		}
		seen[doc.ID] = struct{}{}

		text, err := extract.Text(src.Path)
		if err != nil {
			return domain.IndexStats{}, fmt.Errorf("extract %s: %w", src.Path, err)
		}
		docChunks, err := b.chunker.Chunk(doc, text)
		if err != nil {
			return domain.IndexStats{}, fmt.Errorf("chunk %s: %w", doc.ID, err)
		}

		b.logger.InfoContext(ctx, "document chunked", "document", doc.ID, "chunks", len(docChunks))
		if progress != nil {
			progress(Progress{Document: doc, Path: src.Path, Chunks: len(docChunks)})
		}

		documents = append(documents, doc)
		for _, ch := range docChunks {
			chunks = append(chunks, ch)
			texts = append(texts, ch.Text)
		}
	}

	b.logger.InfoContext(ctx, "embedding chunks", "count", len(texts), "provider", b.embedder.Name())
	vectors, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.IndexStats{}, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	snap := domain.Snapshot{
		Documents:      documents,
		Entries:        make([]domain.IndexEntry, len(chunks)),
		EmbeddingModel: b.embedder.Name(),
		BuiltAt:        time.Now().UTC(),
	}
	for i := range chunks {
		snap.Entries[i] = domain.IndexEntry{Chunk: chunks[i], Vector: vectors[i]}
	}
	if err := b.store.Rebuild(ctx, snap); err != nil {
		return domain.IndexStats{}, fmt.Errorf("rebuild index: %w", err)
	}

	stats, err := b.store.Stats(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("read stats: %w", err)
	}
	b.logger.InfoContext(ctx, "index rebuilt",
		"documents", len(documents),
		"chunks", stats.TotalChunks,
		"duration", time.Since(started).Round(time.Millisecond))
	return stats, nil
}

// resolve fills a manifest entry's defaults: the id is a slug of the
// file stem, the display name falls back to the stem itself.
func resolve(src Source) (domain.Document, error) {
	if strings.TrimSpace(src.Path) == "" {
		return domain.Document{}, fmt.Errorf("%w: document without path", domain.ErrConfiguration)
	}
	stem := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))

	doc := domain.Document{ID: src.ID, Name: src.Name, Category: src.Category}
	if doc.ID == "" {
		doc.ID = slugify(stem)
	}
	if doc.ID == "" {
		return domain.Document{}, fmt.Errorf("%w: cannot derive document id from %q", domain.ErrConfiguration, src.Path)
	}
	if doc.Name == "" {
		doc.Name = stem
	}
	return doc, nil
}

func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}
