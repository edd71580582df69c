// Package vectorindex adapts the chromem-go vector store: it embeds chunk
// text via the external embedding service and serves cosine top-k search.
package vectorindex

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"secondbrain/internal/config"
	"secondbrain/internal/models"
)

const compress = false

// cosine distance for the collection
var collectionMetadata = map[string]string{
	"hnsw:space": "cosine",
}

// Index wraps a chromem-go collection together with the embedder used to
// vectorize chunk text and queries.
type Index struct {
	db       *chromem.DB
	embedder embeddings.Embedder
	name     string

	// mu guards collection, which Reset swaps out under concurrent readers.
	mu         sync.RWMutex
	collection *chromem.Collection
}

func (ix *Index) coll() *chromem.Collection {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.collection
}

// New opens (or creates) the vector index. With InMemory set the index lives
// in process memory; otherwise it persists under cfg.Path.
func New(embedder embeddings.Embedder, cfg *config.VectorDBConfig) (*Index, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compress)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, collectionMetadata, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}

	return &Index{
		db:         db,
		collection: collection,
		embedder:   embedder,
		name:       cfg.Collection,
	}, nil
}

// IndexChunks embeds every chunk's text and stores the batch. Chunks with
// empty text are skipped rather than indexed as degenerate vectors; each
// skip is logged. Returns the ids actually indexed, in input order.
func (ix *Index) IndexChunks(ctx context.Context, chunks []models.Chunk) ([]string, error) {
	kept := make([]models.Chunk, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Text == "" {
			log.Debug().Str("chunk_id", c.ID).Msg("Skipping empty chunk")
			continue
		}
		kept = append(kept, c)
		texts = append(texts, c.Text)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingService, err)
	}

	docs := make([]chromem.Document, len(kept))
	ids := make([]string, len(kept))
	for i, c := range kept {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Metadata:  c.Metadata,
			Embedding: vectors[i],
		}
		ids[i] = c.ID
	}

	if err := ix.coll().AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	return ids, nil
}

// Search embeds the query and returns up to k nearest chunks ordered by
// descending similarity. Fewer than k results are returned when the index
// holds fewer chunks. Equal scores are ordered by chunk id so ranking is
// stable for identical queries against an unchanged index.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	collection := ix.coll()
	count := collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	queryVector, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingService, err)
	}

	results, err := collection.QueryEmbedding(ctx, queryVector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		out[i] = models.SearchResult{
			ID:       r.ID,
			Score:    r.Similarity,
			Text:     r.Content,
			Metadata: r.Metadata,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteByParent removes every indexed chunk belonging to the document.
func (ix *Index) DeleteByParent(ctx context.Context, parentID string) error {
	err := ix.coll().Delete(ctx, map[string]string{models.MetaParentID: parentID}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	return nil
}

// Reset drops and recreates the collection, returning the number of chunks
// removed.
func (ix *Index) Reset(ctx context.Context) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := ix.collection.Count()
	if err := ix.db.DeleteCollection(ix.name); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	collection, err := ix.db.GetOrCreateCollection(ix.name, collectionMetadata, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	ix.collection = collection
	return removed, nil
}

// Count reports the number of indexed chunks.
func (ix *Index) Count() int {
	return ix.coll().Count()
}
