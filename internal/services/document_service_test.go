package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/vectordb/internal/core/coretest"
	"github.com/markdave123-py/vectordb/internal/models"
)

type recordingObjects struct {
	deleted []string
	err     error
}

func (r *recordingObjects) UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "", nil
}

func (r *recordingObjects) DeleteFile(ctx context.Context, key string) error {
	r.deleted = append(r.deleted, key)
	return r.err
}

func seed(store *coretest.Store, hash, filename string, contents ...string) {
	doc := &models.Document{ID: hash + "-id", Filename: filename, ContentHash: hash}
	for i, c := range contents {
		doc.Chunks = append(doc.Chunks, models.DocumentChunk{
			Content:    c,
			ChunkIndex: i,
			Embedding:  coretest.Vector(c, 8),
		})
	}
	store.Put(doc)
}

func newService() (*DocumentService, *coretest.Store) {
	store := coretest.NewStore()
	seed(store, "h1", "animals.txt", "the quick brown fox", "jumps over the lazy dog")
	seed(store, "h2", "space.txt", "rockets reach orbit")
	return NewDocumentService(store, coretest.NewEmbedder(8), nil), store
}

func TestSearch(t *testing.T) {
	svc, _ := newService()

	hits, err := svc.Search(context.Background(), "rockets reach orbit", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "space.txt", hits[0].Filename, "exact text is nearest")
	assert.Zero(t, hits[0].Distance)

	hits, err = svc.Search(context.Background(), "fox", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 3, "default limit covers every chunk here")

	_, err = svc.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	store := coretest.NewStore()
	emb := coretest.NewEmbedder(8)
	emb.FailOn = "boom"
	svc := NewDocumentService(store, emb, nil)

	_, err := svc.Search(context.Background(), "boom", 5)
	assert.ErrorContains(t, err, "embedding query")
}

func TestListGetStats(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	list, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "animals.txt", list[0].Filename)
	assert.Equal(t, 2, list[0].ChunkCount)

	list, err = svc.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "space.txt", list[0].Filename)

	doc, err := svc.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.ChunkCount())

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Documents: 2, Chunks: 3}, st)
}

func TestDelete(t *testing.T) {
	svc, store := newService()
	objs := &recordingObjects{err: errors.New("ignored")}
	svc.WithArchive(objs, "raw")

	n, err := svc.Delete(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{"raw/h1/animals.txt"}, objs.deleted)

	_, err = svc.Delete(context.Background(), "h1")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
