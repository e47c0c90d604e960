package chunker

import (
	"fmt"

	"dirqa/internal/domain"
)

// Window splits text into fixed-size overlapping character windows.
// Boundaries are computed on runes so multi-byte text never splits
// mid-character; chunk offsets are byte offsets into the input text.
type Window struct {
	maxSize int
	overlap int
}

// NewWindow validates the chunking parameters. Overlap must stay
// strictly below the window size or consecutive windows would never
// advance.
func NewWindow(maxSize, overlap int) (*Window, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: chunker: max size must be positive, got %d", domain.ErrConfiguration, maxSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunker: overlap must not be negative, got %d", domain.ErrConfiguration, overlap)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("%w: chunker: overlap %d must be smaller than max size %d", domain.ErrConfiguration, overlap, maxSize)
	}
	return &Window{maxSize: maxSize, overlap: overlap}, nil
}

// Chunk covers the whole text with windows of at most maxSize runes,
// each consecutive pair sharing exactly overlap runes; the final window
// may be shorter. Pure and deterministic: the same input always yields
// identical boundaries.
func (w *Window) Chunk(doc domain.Document, text string) ([]domain.Chunk, error) {
	offs := runeOffsets(text)
	total := len(offs) - 1
	if total == 0 {
		return nil, nil
	}

	step := w.maxSize - w.overlap
	var chunks []domain.Chunk
	for start, ordinal := 0, 0; start < total; start, ordinal = start+step, ordinal+1 {
		end := start + w.maxSize
		if end > total {
			end = total
		}
		lo, hi := offs[start], offs[end]
		chunks = append(chunks, domain.Chunk{
			ChunkID:    domain.ChunkID(doc.ID, ordinal),
			DocumentID: doc.ID,
			Ordinal:    ordinal,
			Text:       text[lo:hi],
			Start:      lo,
			End:        hi,
		})
		if end == total {
			break
		}
	}
	return chunks, nil
}

// runeOffsets returns the byte offset of every rune boundary in text,
// including the trailing len(text).
func runeOffsets(text string) []int {
	offs := make([]int, 0, len(text)+1)
	for i := range text {
		offs = append(offs, i)
	}
	return append(offs, len(text))
}
