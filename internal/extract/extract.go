// Package extract turns source directive files into normalized text.
// Sources are plain-text renderings of the directives; a form feed (as
// left behind by PDF text conversion) separates logical pages.
package extract

import (
	"fmt"
	"os"
	"strings"

	"dirqa/internal/domain"
)

// Pages reads a source document and returns its non-empty logical
// pages, trimmed, with line endings normalized to LF.
func Pages(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentNotFound, err)
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var pages []string
	for _, page := range strings.Split(text, "\f") {
		page = strings.TrimSpace(page)
		if page != "" {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

// Text returns the full normalized text of a source document, pages
// joined by a blank line. Chunk offsets refer to this text.
func Text(path string) (string, error) {
	pages, err := Pages(path)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\n"), nil
}
