package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"secondbrain/internal/models"
)

// DocumentStore is the durable record of parent documents and their chunks.
type DocumentStore interface {
	// Insert persists a new document. The uniqueness check on ContentHash and
	// the write happen as a single atomic statement; when a document with the
	// same hash already exists the returned error wraps
	// models.ErrDuplicateContent and nothing is written.
	Insert(ctx context.Context, doc *models.Document) error

	// FindByHash returns the document with the given content hash, or an
	// error wrapping models.ErrNotFound.
	FindByHash(ctx context.Context, hash string) (*models.Document, error)

	// Get returns the document with the given id, or an error wrapping
	// models.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Document, error)

	// InsertChunks persists a batch of chunks.
	InsertChunks(ctx context.Context, chunks []models.Chunk) error

	// ChunksByParent returns a document's chunks ordered by position.
	ChunksByParent(ctx context.Context, parentID string) ([]models.Chunk, error)

	// Delete removes a document and cascades to its chunks. It returns the
	// number of documents removed (0 or 1) and wraps models.ErrNotFound when
	// the id is absent.
	Delete(ctx context.Context, id string) (int, error)

	// List returns up to limit documents, most recent first.
	List(ctx context.Context, limit int) ([]models.Document, error)

	// ResetAll removes every document and every chunk. Irreversible. It
	// reports the number removed from each collection.
	ResetAll(ctx context.Context) (docs int, chunks int, err error)
}

// Store is the Postgres-backed DocumentStore.
type Store struct {
	db *bun.DB
}

// NewStore creates a Store on an initialized bun connection.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, doc *models.Document) error {
	rec := &Document{
		ID:          doc.ID,
		ContentHash: doc.ContentHash,
		Title:       doc.Title,
		FullContent: doc.FullContent,
		Metadata:    doc.Metadata,
		CreatedAt:   doc.CreatedAt,
	}
	res, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (content_hash) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: hash %s", models.ErrDuplicateContent, doc.ContentHash)
	}
	return nil
}

func (s *Store) FindByHash(ctx context.Context, hash string) (*models.Document, error) {
	rec := new(Document)
	err := s.db.NewSelect().Model(rec).Where("content_hash = ?", hash).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: hash %s", models.ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("find document by hash: %w", err)
	}
	return toModel(rec), nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Document, error) {
	rec := new(Document)
	err := s.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return toModel(rec), nil
}

func (s *Store) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	recs := make([]Chunk, len(chunks))
	for i, c := range chunks {
		recs[i] = Chunk{
			ID:          c.ID,
			ParentID:    c.ParentID,
			ContentHash: c.ContentHash,
			Text:        c.Text,
			Position:    c.Position,
			Metadata:    c.Metadata,
		}
	}
	if _, err := s.db.NewInsert().Model(&recs).Exec(ctx); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return nil
}

func (s *Store) ChunksByParent(ctx context.Context, parentID string) ([]models.Chunk, error) {
	var recs []Chunk
	err := s.db.NewSelect().
		Model(&recs).
		Where("parent_id = ?", parentID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("chunks by parent: %w", err)
	}
	out := make([]models.Chunk, len(recs))
	for i, r := range recs {
		out[i] = models.Chunk{
			ID:          r.ID,
			ParentID:    r.ParentID,
			ContentHash: r.ContentHash,
			Text:        r.Text,
			Position:    r.Position,
			Metadata:    r.Metadata,
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) (int, error) {
	var deleted int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Chunk)(nil)).Where("parent_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*Document)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}
	if deleted == 0 {
		return 0, fmt.Errorf("%w: id %s", models.ErrNotFound, id)
	}
	return int(deleted), nil
}

// List returns documents ordered by creation time, most recent first.
func (s *Store) List(ctx context.Context, limit int) ([]models.Document, error) {
	var recs []Document
	q := s.db.NewSelect().Model(&recs).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]models.Document, len(recs))
	for i := range recs {
		out[i] = *toModel(&recs[i])
	}
	return out, nil
}

func (s *Store) ResetAll(ctx context.Context) (int, int, error) {
	var docs, chunks int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*Chunk)(nil)).Where("TRUE").Exec(ctx)
		if err != nil {
			return err
		}
		if chunks, err = res.RowsAffected(); err != nil {
			return err
		}
		res, err = tx.NewDelete().Model((*Document)(nil)).Where("TRUE").Exec(ctx)
		if err != nil {
			return err
		}
		docs, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("reset all: %w", err)
	}
	return int(docs), int(chunks), nil
}

func toModel(rec *Document) *models.Document {
	return &models.Document{
		ID:          rec.ID,
		ContentHash: rec.ContentHash,
		Title:       rec.Title,
		FullContent: rec.FullContent,
		Metadata:    rec.Metadata,
		CreatedAt:   rec.CreatedAt,
	}
}
