// Package memory provides an ephemeral vector store backend for tests
// and single-process runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"dirqa/internal/domain"
	"dirqa/internal/vectorstore"
)

// Store is an in-memory vector store using brute-force cosine
// similarity. Reads share the lock; writes serialize against reads.
type Store struct {
	mu  sync.RWMutex
	idx *vectorstore.Index
}

func NewStore() *Store { return &Store{} }

// Rebuild atomically replaces the whole index. The new generation is
// assembled outside the lock, so concurrent readers keep searching the
// old one until the swap.
func (s *Store) Rebuild(ctx context.Context, snap domain.Snapshot) error {
	idx, err := vectorstore.NewIndex(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()
	return nil
}

// Upsert adds or replaces one entry keyed by chunk id. The index must
// have completed a build first.
func (s *Store) Upsert(ctx context.Context, entry domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == nil {
		return fmt.Errorf("%w: upsert before build", domain.ErrIndexNotFound)
	}
	return s.idx.Put(entry)
}

func (s *Store) Search(ctx context.Context, vector []float32, k int, filter *domain.Filter) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil, fmt.Errorf("%w: search before build", domain.ErrIndexNotFound)
	}
	return s.idx.Search(vector, k, filter)
}

func (s *Store) Documents(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil, fmt.Errorf("%w: no build has completed", domain.ErrIndexNotFound)
	}
	return s.idx.Documents(), nil
}

func (s *Store) Stats(ctx context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return domain.IndexStats{}, fmt.Errorf("%w: no build has completed", domain.ErrIndexNotFound)
	}
	return s.idx.Stats(), nil
}

func (s *Store) Close() error { return nil }
