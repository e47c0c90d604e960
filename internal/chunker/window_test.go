package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirqa/internal/domain"
)

func TestNewWindowRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name    string
		max     int
		overlap int
	}{
		{"overlap equals max", 500, 500},
		{"overlap above max", 100, 150},
		{"zero max", 0, 0},
		{"negative max", -10, 0},
		{"negative overlap", 500, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWindow(tc.max, tc.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestChunkOffsets(t *testing.T) {
	w, err := NewWindow(500, 100)
	require.NoError(t, err)

	text := strings.Repeat("a", 1000)
	chunks, err := w.Chunk(domain.Document{ID: "d055"}, text)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	spans := [][2]int{{0, 500}, {400, 900}, {800, 1000}}
	for i, c := range chunks {
		assert.Equal(t, spans[i][0], c.Start, "chunk %d start", i)
		assert.Equal(t, spans[i][1], c.End, "chunk %d end", i)
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, "d055", c.DocumentID)
		assert.Equal(t, domain.ChunkID("d055", i), c.ChunkID)
		assert.Equal(t, text[c.Start:c.End], c.Text)
	}
}

func TestChunkCoversEveryCharacter(t *testing.T) {
	w, err := NewWindow(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("x", 337)
	chunks, err := w.Chunk(domain.Document{ID: "doc"}, text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	cover := make([]int, len(text))
	for _, c := range chunks {
		for i := c.Start; i < c.End; i++ {
			cover[i]++
		}
	}
	for i, n := range cover {
		assert.GreaterOrEqual(t, n, 1, "position %d uncovered", i)
		assert.LessOrEqual(t, n, 2, "position %d covered %d times", i, n)
	}
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, 10, chunks[i-1].End-chunks[i].Start, "overlap between chunks %d and %d", i-1, i)
	}
}

func TestChunkShortText(t *testing.T) {
	w, err := NewWindow(500, 100)
	require.NoError(t, err)

	chunks, err := w.Chunk(domain.Document{ID: "doc"}, "short text")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len("short text"), chunks[0].End)
}

func TestChunkEmptyText(t *testing.T) {
	w, err := NewWindow(500, 100)
	require.NoError(t, err)

	chunks, err := w.Chunk(domain.Document{ID: "doc"}, "")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkMultibyteText(t *testing.T) {
	w, err := NewWindow(4, 1)
	require.NoError(t, err)

	text := "абвгдеёжз"
	chunks, err := w.Chunk(domain.Document{ID: "doc"}, text)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text))
		assert.Equal(t, text[c.Start:c.End], c.Text)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 4)
	}
}

func TestChunkDeterministic(t *testing.T) {
	w, err := NewWindow(120, 30)
	require.NoError(t, err)

	text := strings.Repeat("directive text on well suspension requirements. ", 40)
	doc := domain.Document{ID: "d013"}

	first, err := w.Chunk(doc, text)
	require.NoError(t, err)
	second, err := w.Chunk(doc, text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
