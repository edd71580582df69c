package models

import "errors"

// Domain errors. Callers match with errors.Is; infrastructure packages wrap
// the underlying cause with fmt.Errorf("%w: ...", Err...).
var (
	// ErrDuplicateContent indicates a document with the same content hash
	// already exists. Surfaced to users as a "skipped" status, not a failure.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrEmbeddingService indicates the external embedding call failed.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService indicates the external LLM call failed.
	ErrGenerationService = errors.New("generation service error")

	// ErrIndexUnavailable indicates the vector index backend is unreachable.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrMalformedAgentResponse indicates the model produced neither a tool
	// call nor an answer.
	ErrMalformedAgentResponse = errors.New("malformed agent response")
)
