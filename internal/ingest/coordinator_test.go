package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secondbrain/internal/chunker"
	"secondbrain/internal/db"
	"secondbrain/internal/models"
)

// fakeIndexer records indexed chunks and can be told to fail.
type fakeIndexer struct {
	mu      sync.Mutex
	indexed []models.Chunk
	fail    bool
}

func (f *fakeIndexer) IndexChunks(_ context.Context, chunks []models.Chunk) ([]string, error) {
	if f.fail {
		return nil, errors.New("index backend unreachable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, chunks...)
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids, nil
}

func newTestCoordinator(indexer *fakeIndexer) (*Coordinator, *db.MemoryStore) {
	store := db.NewMemoryStore()
	c := NewCoordinator(store, indexer, chunker.New(chunker.WithChunkSize(100), chunker.WithOverlap(20)))
	return c, store
}

func TestIngest_NewContent(t *testing.T) {
	ctx := context.Background()
	indexer := &fakeIndexer{}
	c, store := newTestCoordinator(indexer)

	res := c.Ingest(ctx, "Paris is the capital of France.", models.SourceMetadata{Filename: "france.md"})

	assert.Equal(t, models.StatusIndexed, res.Status)
	assert.Equal(t, "france", res.Title)
	assert.Equal(t, 1, res.Chunks, "short text yields exactly one chunk")
	require.NotEmpty(t, res.DocumentID)

	doc, err := store.Get(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", doc.FullContent)
	assert.Len(t, doc.ContentHash, 64)

	require.Len(t, indexer.indexed, 1)
	chunk := indexer.indexed[0]
	assert.Equal(t, res.DocumentID, chunk.Metadata[models.MetaParentID])
	assert.Equal(t, doc.ContentHash, chunk.Metadata[models.MetaContentHash])
	assert.Equal(t, "0", chunk.Metadata[models.MetaPosition])
}

func TestIngest_DuplicateSkipped(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCoordinator(&fakeIndexer{})

	first := c.Ingest(ctx, "same text", models.SourceMetadata{Filename: "a.txt"})
	require.Equal(t, models.StatusIndexed, first.Status)

	second := c.Ingest(ctx, "same text", models.SourceMetadata{Filename: "b.txt"})
	assert.Equal(t, models.StatusSkipped, second.Status)
	assert.Equal(t, first.DocumentID, second.DocumentID, "skip references the existing document")

	docs, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "exactly one document per content hash")
}

func TestIngest_IndexFailureLeavesDocument(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCoordinator(&fakeIndexer{fail: true})

	res := c.Ingest(ctx, "some content", models.SourceMetadata{Filename: "a.txt"})

	assert.Equal(t, models.StatusError, res.Status)
	assert.Contains(t, res.Error, "index backend unreachable")
	require.NotEmpty(t, res.DocumentID)

	// The parent document is not rolled back.
	_, err := store.Get(ctx, res.DocumentID)
	assert.NoError(t, err)
}

func TestIngest_LongTextChunkedWithMetadata(t *testing.T) {
	ctx := context.Background()
	indexer := &fakeIndexer{}
	c, store := newTestCoordinator(indexer)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	res := c.Ingest(ctx, text, models.SourceMetadata{Filename: "fox.txt"})

	require.Equal(t, models.StatusIndexed, res.Status)
	assert.Greater(t, res.Chunks, 1)

	stored, err := store.ChunksByParent(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Len(t, stored, res.Chunks)
	for i, chunk := range stored {
		assert.Equal(t, i, chunk.Position)
		assert.Contains(t, text, chunk.Text, "chunk text is a substring of the full content")
	}
}

func TestIngestFiles_ConcurrentIdenticalContent(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCoordinator(&fakeIndexer{})

	const n = 10
	files := make([]models.FileUpload, n)
	for i := range files {
		files[i] = models.FileUpload{Filename: "note.txt", Data: []byte("byte-identical content")}
	}

	results := c.IngestFiles(ctx, files)
	require.Len(t, results, n)

	var indexed, skipped int
	for _, r := range results {
		switch r.Status {
		case models.StatusIndexed:
			indexed++
		case models.StatusSkipped:
			skipped++
		default:
			t.Fatalf("unexpected status %q: %s", r.Status, r.Error)
		}
	}
	assert.Equal(t, 1, indexed, "exactly one ingestion wins")
	assert.Equal(t, n-1, skipped)

	docs, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestFiles_PerFileErrorIsolation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(&fakeIndexer{})

	results := c.IngestFiles(ctx, []models.FileUpload{
		{Filename: "good.txt", Data: []byte("readable content")},
		{Filename: "bad.png", Data: []byte{0x89}},
		{Filename: "also-good.txt", Data: []byte("more readable content")},
	})

	require.Len(t, results, 3)
	assert.Equal(t, models.StatusIndexed, results[0].Status)
	assert.Equal(t, models.StatusError, results[1].Status)
	assert.Equal(t, models.StatusIndexed, results[2].Status, "sibling failure does not abort processing")
}

func TestIngestArchive(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(&fakeIndexer{})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"notes/first.txt":  "first note",
		"notes/second.txt": "second note",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	results, err := c.IngestArchive(ctx, buf.Bytes())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, models.StatusIndexed, r.Status)
	}
}

func TestIngestArchive_InvalidData(t *testing.T) {
	c, _ := newTestCoordinator(&fakeIndexer{})
	_, err := c.IngestArchive(context.Background(), []byte("not a zip"))
	assert.Error(t, err)
}
