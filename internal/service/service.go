// Package service exposes the query-time surface of the assistant: one
// facade running the per-query pipeline over the wired components.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"dirqa/internal/domain"
	"dirqa/internal/logctx"
)

// Config holds the service parameters.
type Config struct {
	// TopK is the retrieval depth used when a question does not set one.
	TopK int
}

// Service answers questions against a built index. Concurrent Ask
// calls are independent; the service itself holds no mutable state.
type Service struct {
	retriever domain.Retriever
	composer  domain.Composer
	store     domain.VectorStore
	topK      int
	logger    *slog.Logger
}

func New(retriever domain.Retriever, composer domain.Composer, store domain.VectorStore, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		retriever: retriever,
		composer:  composer,
		store:     store,
		topK:      topK,
		logger:    logger,
	}
}

// Ask runs one query through the pipeline: received, embedding,
// searching, composing, then done or failed. Transitions go one way
// and nothing is retried here; a failed stage surfaces its typed error
// and no partial answer.
func (s *Service) Ask(ctx context.Context, q domain.Question) (*domain.Answer, error) {
	log := s.logger.With("query_id", uuid.NewString())
	ctx = logctx.With(ctx, log)
	started := time.Now()

	topK := q.TopK
	if topK == 0 {
		topK = s.topK
	}
	log.InfoContext(ctx, "query received", "top_k", topK, "filtered", q.Filter != nil)

	if strings.TrimSpace(q.Text) == "" {
		err := fmt.Errorf("%w: empty question", domain.ErrConfiguration)
		s.fail(ctx, log, started, err)
		return nil, err
	}
	if topK < 1 {
		err := fmt.Errorf("%w: top k must be at least 1, got %d", domain.ErrConfiguration, topK)
		s.fail(ctx, log, started, err)
		return nil, err
	}

	results, err := s.retriever.Retrieve(ctx, q.Text, topK, q.Filter)
	if err != nil {
		s.fail(ctx, log, started, err)
		return nil, err
	}

	log.DebugContext(ctx, "query state", "stage", "composing", "results", len(results))
	answer, err := s.composer.Compose(ctx, q.Text, results)
	if err != nil {
		s.fail(ctx, log, started, err)
		return nil, err
	}

	log.InfoContext(ctx, "query answered",
		"citations", len(answer.Citations),
		"duration", time.Since(started).Round(time.Millisecond))
	return answer, nil
}

func (s *Service) fail(ctx context.Context, log *slog.Logger, started time.Time, err error) {
	log.ErrorContext(ctx, "query failed",
		"stage", failedStage(err),
		"error", err,
		"duration", time.Since(started).Round(time.Millisecond))
}

// failedStage maps an error kind back to the pipeline stage it belongs
// to, for the failure log.
func failedStage(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return "received"
	case errors.Is(err, domain.ErrEmbedding):
		return "embedding"
	case errors.Is(err, domain.ErrGeneration):
		return "composing"
	default:
		return "searching"
	}
}

// Documents lists the indexed documents in registry order.
func (s *Service) Documents(ctx context.Context) ([]domain.Document, error) {
	return s.store.Documents(ctx)
}

// Stats reports the current index statistics.
func (s *Service) Stats(ctx context.Context) (domain.IndexStats, error) {
	return s.store.Stats(ctx)
}
