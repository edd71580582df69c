// Package ingest orchestrates the ingestion pipeline: hash, dedup check,
// parent persistence, chunking, embedding and indexing.
package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"secondbrain/internal/chunker"
	"secondbrain/internal/db"
	"secondbrain/internal/helper"
	"secondbrain/internal/loader"
	"secondbrain/internal/models"
)

// Indexer is the slice of the vector index the coordinator needs.
type Indexer interface {
	IndexChunks(ctx context.Context, chunks []models.Chunk) ([]string, error)
}

// Coordinator drives a file through
// Received -> Hashed -> {Duplicate-Skipped | Persisted -> Chunked -> Indexed}.
type Coordinator struct {
	store    db.DocumentStore
	index    Indexer
	splitter *chunker.Splitter
}

// NewCoordinator wires the coordinator's collaborators. The splitter's chunk
// size and overlap are process-wide constants: changing them between runs
// invalidates chunk-boundary determinism across re-ingestion.
func NewCoordinator(store db.DocumentStore, index Indexer, splitter *chunker.Splitter) *Coordinator {
	return &Coordinator{store: store, index: index, splitter: splitter}
}

// Ingest runs the pipeline for one text. A duplicate is reported as status
// "skipped" with the existing document's id; it is a normal outcome. When
// indexing fails after the document was persisted the document is not rolled
// back: the partial state is logged and reported as status "error".
func (c *Coordinator) Ingest(ctx context.Context, rawText string, source models.SourceMetadata) models.IngestionResult {
	title := helper.TitleFromFilename(source.Filename)

	hash := helper.HashContent(rawText)

	id, err := helper.GenerateUUID()
	if err != nil {
		return errorResult(title, err)
	}

	meta := map[string]string{
		models.MetaSource: source.Filename,
		models.MetaTitle:  title,
		"uploaded_at":     time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range source.Extra {
		if v != "" {
			meta[k] = v
		}
	}

	doc := &models.Document{
		ID:          id,
		ContentHash: hash,
		Title:       title,
		FullContent: rawText,
		Metadata:    meta,
		CreatedAt:   time.Now().UTC(),
	}

	if err := c.store.Insert(ctx, doc); err != nil {
		if errors.Is(err, models.ErrDuplicateContent) {
			existing, ferr := c.store.FindByHash(ctx, hash)
			if ferr != nil {
				return errorResult(title, ferr)
			}
			log.Debug().Str("document_id", existing.ID).Str("title", title).Msg("Duplicate content, skipping")
			return models.IngestionResult{
				Status:     models.StatusSkipped,
				DocumentID: existing.ID,
				Title:      existing.Title,
			}
		}
		return errorResult(title, err)
	}

	pieces := c.splitter.Split(rawText)
	chunks := make([]models.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunkID, err := helper.GenerateUUID()
		if err != nil {
			return errorResult(title, err)
		}
		chunkMeta := make(map[string]string, len(meta)+3)
		for k, v := range meta {
			chunkMeta[k] = v
		}
		chunkMeta[models.MetaParentID] = id
		chunkMeta[models.MetaContentHash] = hash
		chunkMeta[models.MetaPosition] = strconv.Itoa(i)

		chunks = append(chunks, models.Chunk{
			ID:          chunkID,
			ParentID:    id,
			ContentHash: hash,
			Text:        text,
			Position:    i,
			Metadata:    chunkMeta,
		})
	}

	if err := c.store.InsertChunks(ctx, chunks); err != nil {
		log.Error().Err(err).Str("document_id", id).Msg("Document persisted but chunk persistence failed")
		return partialResult(id, title, err)
	}

	if len(chunks) > 0 {
		if _, err := c.index.IndexChunks(ctx, chunks); err != nil {
			// Documented inconsistency: the document stays persisted with
			// zero indexed chunks. No rollback; operators reconcile manually.
			log.Error().Err(err).Str("document_id", id).Msg("Document persisted but chunk indexing failed")
			return partialResult(id, title, err)
		}
	}

	log.Info().Str("document_id", id).Str("title", title).Int("chunks", len(chunks)).Msg("Indexed document")
	return models.IngestionResult{
		Status:     models.StatusIndexed,
		DocumentID: id,
		Title:      title,
		Chunks:     len(chunks),
	}
}

// IngestFile extracts text from the upload and ingests it.
func (c *Coordinator) IngestFile(ctx context.Context, file models.FileUpload) models.IngestionResult {
	text, err := loader.ExtractText(file.Filename, file.Data)
	if err != nil {
		return errorResult(helper.TitleFromFilename(file.Filename), err)
	}

	source := models.SourceMetadata{Filename: file.Filename}
	if heading := loader.Heading(file.Filename, file.Data); heading != "" {
		source.Extra = map[string]string{"heading": heading}
	}
	return c.Ingest(ctx, text, source)
}

// IngestFiles processes an upload batch, one goroutine per file. Files are
// independent: the storage-level uniqueness constraint protects concurrent
// duplicates and one file's failure never aborts its siblings. Results come
// back in input order.
func (c *Coordinator) IngestFiles(ctx context.Context, files []models.FileUpload) []models.IngestionResult {
	results := make([]models.IngestionResult, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f models.FileUpload) {
			defer wg.Done()
			results[i] = c.IngestFile(ctx, f)
		}(i, f)
	}
	wg.Wait()
	return results
}

// IngestArchive unpacks a zip bundle and ingests every contained file
// independently, returning one result per file.
func (c *Coordinator) IngestArchive(ctx context.Context, data []byte) ([]models.IngestionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var results []models.IngestionResult
	var files []models.FileUpload
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.FileInfo().Name(), ".") {
			continue
		}
		content, err := readZipEntry(f)
		if err != nil {
			// An unreadable entry gets its own error result; siblings proceed.
			results = append(results, errorResult(helper.TitleFromFilename(f.Name), err))
			continue
		}
		files = append(files, models.FileUpload{Filename: f.Name, Data: content})
	}

	return append(results, c.IngestFiles(ctx, files)...), nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func errorResult(title string, err error) models.IngestionResult {
	return models.IngestionResult{Status: models.StatusError, Title: title, Error: err.Error()}
}

func partialResult(id, title string, err error) models.IngestionResult {
	return models.IngestionResult{Status: models.StatusError, DocumentID: id, Title: title, Error: err.Error()}
}
