package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirqa/internal/composer"
	"dirqa/internal/domain"
	"dirqa/internal/retriever"
	"dirqa/internal/vectorstore"
	"dirqa/internal/vectorstore/memory"
)

type stubRetriever struct {
	results []domain.SearchResult
	err     error

	calls  int
	query  string
	topK   int
	filter *domain.Filter
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, topK int, filter *domain.Filter) ([]domain.SearchResult, error) {
	s.calls++
	s.query = query
	s.topK = topK
	s.filter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type stubComposer struct {
	answer *domain.Answer
	err    error

	calls   int
	query   string
	results []domain.SearchResult
}

func (s *stubComposer) Compose(_ context.Context, query string, results []domain.SearchResult) (*domain.Answer, error) {
	s.calls++
	s.query = query
	s.results = results
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Name() string   { return "stub" }
func (s *stubEmbedder) Dimension() int { return len(s.vector) }

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.Embed(context.Background(), texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type stubGenerator struct {
	reply string
	err   error
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResults() []domain.SearchResult {
	return []domain.SearchResult{
		{
			Chunk:    domain.Chunk{ChunkID: "d055:0", DocumentID: "d055", Ordinal: 0, Text: "Flammable liquids go in approved cabinets."},
			Document: domain.Document{ID: "d055", Name: "Directive 055", Category: "Storage"},
			Score:    0.91,
		},
	}
}

func TestAskRunsPipeline(t *testing.T) {
	ret := &stubRetriever{results: sampleResults()}
	comp := &stubComposer{answer: &domain.Answer{
		Text:      "Store them in approved cabinets.",
		Citations: []domain.Citation{{DocumentID: "d055", DocumentName: "Directive 055", Ordinal: 0, Score: 0.91}},
	}}
	svc := New(ret, comp, memory.NewStore(), Config{TopK: 5}, discardLogger())

	answer, err := svc.Ask(context.Background(), domain.Question{Text: "Where do flammable liquids go?"})
	require.NoError(t, err)
	require.NotNil(t, answer)

	assert.Equal(t, "Store them in approved cabinets.", answer.Text)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "d055", answer.Citations[0].DocumentID)

	assert.Equal(t, 1, ret.calls)
	assert.Equal(t, "Where do flammable liquids go?", ret.query)
	assert.Equal(t, 1, comp.calls)
	assert.Equal(t, ret.results, comp.results)
}

func TestAskDefaultsTopK(t *testing.T) {
	ret := &stubRetriever{}
	comp := &stubComposer{answer: &domain.Answer{Text: "nothing indexed covers that"}}
	svc := New(ret, comp, memory.NewStore(), Config{TopK: 7}, discardLogger())

	_, err := svc.Ask(context.Background(), domain.Question{Text: "anything"})
	require.NoError(t, err)
	assert.Equal(t, 7, ret.topK)

	_, err = svc.Ask(context.Background(), domain.Question{Text: "anything", TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, ret.topK)
}

func TestAskPassesFilter(t *testing.T) {
	ret := &stubRetriever{}
	comp := &stubComposer{answer: &domain.Answer{Text: "ok"}}
	svc := New(ret, comp, memory.NewStore(), Config{}, discardLogger())

	filter := &domain.Filter{DocumentIDs: []string{"d013"}}
	_, err := svc.Ask(context.Background(), domain.Question{Text: "scoped", Filter: filter})
	require.NoError(t, err)
	assert.Equal(t, filter, ret.filter)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	ret := &stubRetriever{}
	comp := &stubComposer{}
	svc := New(ret, comp, memory.NewStore(), Config{}, discardLogger())

	answer, err := svc.Ask(context.Background(), domain.Question{Text: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Nil(t, answer)
	assert.Zero(t, ret.calls)
	assert.Zero(t, comp.calls)
}

func TestAskRejectsNegativeTopK(t *testing.T) {
	ret := &stubRetriever{}
	comp := &stubComposer{}
	svc := New(ret, comp, memory.NewStore(), Config{}, discardLogger())

	_, err := svc.Ask(context.Background(), domain.Question{Text: "q", TopK: -2})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, ret.calls)
}

func TestAskRetrievalFailureSkipsComposer(t *testing.T) {
	ret := &stubRetriever{err: fmt.Errorf("%w: provider unreachable", domain.ErrEmbedding)}
	comp := &stubComposer{}
	svc := New(ret, comp, memory.NewStore(), Config{}, discardLogger())

	answer, err := svc.Ask(context.Background(), domain.Question{Text: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Nil(t, answer)
	assert.Zero(t, comp.calls)
}

func TestAskGenerationFailureReturnsNoAnswer(t *testing.T) {
	ret := &stubRetriever{results: sampleResults()}
	comp := &stubComposer{err: fmt.Errorf("%w: model timeout", domain.ErrGeneration)}
	svc := New(ret, comp, memory.NewStore(), Config{}, discardLogger())

	answer, err := svc.Ask(context.Background(), domain.Question{Text: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Nil(t, answer)
}

func TestAskBeforeBuildFailsWithIndexNotFound(t *testing.T) {
	store := memory.NewStore()
	ret := retriever.New(&stubEmbedder{vector: []float32{1, 0}}, store, retriever.Config{})
	comp := composer.New(&stubGenerator{reply: "ignored"}, composer.Config{})
	svc := New(ret, comp, store, Config{}, discardLogger())

	answer, err := svc.Ask(context.Background(), domain.Question{Text: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.Nil(t, answer)
}

func TestDocumentsAndStatsPassThrough(t *testing.T) {
	store := memory.NewStore()
	err := store.Rebuild(context.Background(), domain.Snapshot{
		Documents: []domain.Document{{ID: "d055", Name: "Directive 055", Category: "Storage"}},
		Entries: []domain.IndexEntry{
			{Chunk: domain.Chunk{ChunkID: "d055:0", DocumentID: "d055", Ordinal: 0, Text: "text"}, Vector: []float32{1, 0}},
		},
		EmbeddingModel: "stub",
	})
	require.NoError(t, err)

	svc := New(&stubRetriever{}, &stubComposer{}, store, Config{}, discardLogger())

	docs, err := svc.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Directive 055", docs[0].Name)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
	assert.Equal(t, "stub", stats.EmbeddingModel)
}

var _ domain.Assistant = (*Service)(nil)
var _ domain.Retriever = (*stubRetriever)(nil)
var _ domain.Composer = (*stubComposer)(nil)
var _ domain.EmbeddingProvider = (*stubEmbedder)(nil)
var _ domain.GenerationProvider = (*stubGenerator)(nil)

func TestFailedStageMapping(t *testing.T) {
	cases := []struct {
		err   error
		stage string
	}{
		{fmt.Errorf("%w: bad", domain.ErrConfiguration), "received"},
		{fmt.Errorf("%w: down", domain.ErrEmbedding), "embedding"},
		{fmt.Errorf("%w: timeout", domain.ErrGeneration), "composing"},
		{fmt.Errorf("%w", domain.ErrIndexNotFound), "searching"},
		{errors.New("plain"), "searching"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.stage, failedStage(tc.err), "error %v", tc.err)
	}
}
