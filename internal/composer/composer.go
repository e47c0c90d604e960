// Package composer assembles retrieved chunks into a bounded generation
// context and returns the cited answer.
package composer

import (
	"context"
	"fmt"
	"strings"

	"dirqa/internal/domain"
)

const systemPrompt = `You are an expert assistant for regulatory directives and industrial compliance.

Your role:
- Answer questions based ONLY on the provided directive excerpts
- Provide accurate, compliance-focused information
- Include specific directive references when relevant
- If information is not in the context, clearly state this
- Be professional and precise

Guidelines:
- Cite specific directives when answering
- Include relevant section numbers if mentioned in context
- Keep answers clear and actionable
- Do not make up requirements not in the context`

// Config holds the composition parameters.
type Config struct {
	// MaxContextChars bounds the rendered context block. Chunks that do
	// not fit are dropped whole, lowest-scored first.
	MaxContextChars int
}

// Composer builds prompts and calls the generation backend.
type Composer struct {
	generator       domain.GenerationProvider
	maxContextChars int
}

func New(generator domain.GenerationProvider, cfg Config) *Composer {
	max := cfg.MaxContextChars
	if max <= 0 {
		max = 6000
	}
	return &Composer{generator: generator, maxContextChars: max}
}

// Compose renders the ranked results into a context block, asks the
// generation backend and returns the answer with citations for exactly
// the chunks that made it into the block. On any backend failure no
// answer is returned. An answer citing nothing is the normal shape of
// "no relevant information found".
func (c *Composer) Compose(ctx context.Context, query string, results []domain.SearchResult) (*domain.Answer, error) {
	included, block := c.buildContext(results)

	prompt := fmt.Sprintf(`Context from the indexed directives:

%s

Question: %s

Provide a clear, professional answer based on the context above. Include relevant directive citations.`, block, query)

	text, err := c.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	answer := &domain.Answer{
		Text:      text,
		Citations: make([]domain.Citation, 0, len(included)),
	}
	for _, res := range included {
		answer.Citations = append(answer.Citations, domain.Citation{
			DocumentID:   res.Chunk.DocumentID,
			DocumentName: res.Document.Name,
			Ordinal:      res.Chunk.Ordinal,
			Score:        res.Score,
		})
	}
	return answer, nil
}

// buildContext renders as many whole chunks as fit the budget, taking
// them in rank order so the lowest-scored are the ones dropped. A chunk
// is never truncated mid-text.
func (c *Composer) buildContext(results []domain.SearchResult) ([]domain.SearchResult, string) {
	var (
		parts    []string
		included []domain.SearchResult
		total    int
	)
	for _, res := range results {
		part := fmt.Sprintf("[Source %d - %s] (Relevance: %.2f):\n%s",
			len(included)+1, res.Document.Name, res.Score, res.Chunk.Text)
		cost := len(part)
		if len(parts) > 0 {
			cost += len("\n\n")
		}
		if total+cost > c.maxContextChars {
			break
		}
		parts = append(parts, part)
		included = append(included, res)
		total += cost
	}
	return included, strings.Join(parts, "\n\n")
}
