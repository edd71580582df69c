package db

import (
	"context"
	"fmt"
	"sync"

	"secondbrain/internal/models"
)

// MemoryStore is an in-memory DocumentStore. It enforces the same atomic
// content-hash uniqueness as the Postgres store: the hash check and the
// write happen under one lock, so concurrent duplicate inserts cannot both
// succeed.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]*models.Document
	byHash map[string]string
	order  []string
	chunks []models.Chunk
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*models.Document),
		byHash: make(map[string]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHash[doc.ContentHash]; ok {
		return fmt.Errorf("%w: hash %s", models.ErrDuplicateContent, doc.ContentHash)
	}

	cp := *doc
	s.byID[cp.ID] = &cp
	s.byHash[cp.ContentHash] = cp.ID
	s.order = append(s.order, cp.ID)
	return nil
}

func (s *MemoryStore) FindByHash(_ context.Context, hash string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("%w: hash %s", models.ErrNotFound, hash)
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", models.ErrNotFound, id)
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryStore) InsertChunks(_ context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *MemoryStore) ChunksByParent(_ context.Context, parentID string) ([]models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Chunk
	for _, c := range s.chunks {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %s", models.ErrNotFound, id)
	}

	delete(s.byID, id)
	delete(s.byHash, doc.ContentHash)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.ParentID != id {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return 1, nil
}

// List returns documents in most-recent-first insertion order.
func (s *MemoryStore) List(_ context.Context, limit int) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Document, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, *s.byID[s.order[i]])
	}
	return out, nil
}

func (s *MemoryStore) ResetAll(_ context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := len(s.byID)
	chunks := len(s.chunks)
	s.byID = make(map[string]*models.Document)
	s.byHash = make(map[string]string)
	s.order = nil
	s.chunks = nil
	return docs, chunks, nil
}
