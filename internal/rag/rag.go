// Package rag wires the ingestion and query pipelines behind one service
// facade; the transport layer only ever talks to this type.
package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"secondbrain/internal/agent"
	"secondbrain/internal/chunker"
	"secondbrain/internal/config"
	"secondbrain/internal/db"
	"secondbrain/internal/ingest"
	"secondbrain/internal/models"
	"secondbrain/internal/retrieval"
)

// VectorIndex is the full index surface the facade depends on.
type VectorIndex interface {
	IndexChunks(ctx context.Context, chunks []models.Chunk) ([]string, error)
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
	DeleteByParent(ctx context.Context, parentID string) error
	Reset(ctx context.Context) (int, error)
}

// ResetResult reports how much a full reset removed from each collection.
type ResetResult struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

type RAG struct {
	store       db.DocumentStore
	index       VectorIndex
	coordinator *ingest.Coordinator
	agent       *agent.Agent
}

// NewRAG builds the service from its injected collaborators. The chunking
// policy comes from config once; every ingestion in this process shares it.
func NewRAG(store db.DocumentStore, index VectorIndex, model llms.Model, cfg *config.RAGConfig) *RAG {
	splitter := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)
	tool := retrieval.NewTool(index, cfg.TopK)
	return &RAG{
		store:       store,
		index:       index,
		coordinator: ingest.NewCoordinator(store, index, splitter),
		agent:       agent.New(model, tool, cfg.TopK),
	}
}

// IngestText runs the pipeline for one raw text.
func (r *RAG) IngestText(ctx context.Context, content string, source models.SourceMetadata) models.IngestionResult {
	return r.coordinator.Ingest(ctx, content, source)
}

// Ingest processes an upload batch, one result per file.
func (r *RAG) Ingest(ctx context.Context, files []models.FileUpload) []models.IngestionResult {
	return r.coordinator.IngestFiles(ctx, files)
}

// IngestArchive processes a zip bundle, one result per contained file.
func (r *RAG) IngestArchive(ctx context.Context, data []byte) ([]models.IngestionResult, error) {
	return r.coordinator.IngestArchive(ctx, data)
}

// ListDocuments returns document summaries (full content omitted), most
// recent first.
func (r *RAG) ListDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	docs, err := r.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].FullContent = ""
	}
	return docs, nil
}

// DeleteDocument removes a document with its chunks from both the document
// store and the vector index. The two deletes are coordinated, not atomic:
// when the index delete fails, the store delete has already happened.
func (r *RAG) DeleteDocument(ctx context.Context, id string) (int, error) {
	n, err := r.store.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := r.index.DeleteByParent(ctx, id); err != nil {
		log.Error().Err(err).Str("document_id", id).Msg("Document deleted but index cleanup failed")
		return n, fmt.Errorf("index cleanup: %w", err)
	}
	return n, nil
}

// ResetAll deletes every document and chunk everywhere. Irreversible.
func (r *RAG) ResetAll(ctx context.Context) (ResetResult, error) {
	docs, chunks, err := r.store.ResetAll(ctx)
	if err != nil {
		return ResetResult{}, err
	}
	if _, err := r.index.Reset(ctx); err != nil {
		return ResetResult{Documents: docs, Chunks: chunks}, err
	}
	log.Info().Int("documents", docs).Int("chunks", chunks).Msg("Reset all collections")
	return ResetResult{Documents: docs, Chunks: chunks}, nil
}

// Query answers a natural-language question via the agent.
func (r *RAG) Query(ctx context.Context, question string) (string, error) {
	return r.agent.Answer(ctx, question)
}
