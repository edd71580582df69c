package models

import "time"

// Document is the parent record of an ingested file. It is created once on
// first sight of new content and never mutated afterwards; at most one
// Document exists per distinct ContentHash.
type Document struct {
	ID          string            `json:"id"`
	ContentHash string            `json:"content_hash"`
	Title       string            `json:"title"`
	FullContent string            `json:"full_content,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Chunk is the unit of embedding and retrieval: a bounded contiguous slice
// of its parent document's text. Chunks are created in a batch right after
// the parent is persisted and only disappear via cascade or full reset.
type Chunk struct {
	ID          string            `json:"id"`
	ParentID    string            `json:"parent_id"`
	ContentHash string            `json:"content_hash"`
	Text        string            `json:"text"`
	Position    int               `json:"position"`
	Embedding   []float32         `json:"embedding,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SearchResult is one ranked hit from a similarity search.
type SearchResult struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RetrievalResult is the formatted output of the retrieval tool.
type RetrievalResult struct {
	Context string         `json:"context"`
	Chunks  []SearchResult `json:"chunks"`
}

// Ingestion statuses. A duplicate upload is a normal outcome, not an error.
const (
	StatusIndexed = "indexed"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// IngestionResult reports the outcome of ingesting a single file.
type IngestionResult struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id,omitempty"`
	Title      string `json:"title"`
	Chunks     int    `json:"chunks,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FileUpload is one raw file handed to the ingestion pipeline.
type FileUpload struct {
	Filename string
	Data     []byte
}

// SourceMetadata describes where an ingested text came from.
type SourceMetadata struct {
	Filename string
	Extra    map[string]string
}
