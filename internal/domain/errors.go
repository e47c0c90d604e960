package domain

import "errors"

// Error kinds surfaced by the core. Layers add context with fmt.Errorf
// and %w; callers match with errors.Is. The core performs no silent
// recovery: a failed operation always returns one of these, never a
// substitute result.
var (
	// ErrConfiguration marks invalid chunking, index or client parameters.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrIndexNotFound marks a search against an index that has never
	// completed a build.
	ErrIndexNotFound = errors.New("index not found")

	// ErrEmbedding marks a failed or malformed embedding backend call.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration marks a failed, timed out or empty generation call.
	ErrGeneration = errors.New("generation failed")

	// ErrDocumentNotFound marks a missing or unreadable ingestion path.
	ErrDocumentNotFound = errors.New("document not found")
)
