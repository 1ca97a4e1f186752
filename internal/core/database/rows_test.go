package db

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/vectordb/internal/models"
)

func sampleDocument() *models.Document {
	return &models.Document{
		ID:          "6f1c0c8e-7f57-4b1a-9d2e-3c4b5a697881",
		Filename:    "notes.txt",
		FilePath:    "/data/notes.txt",
		ContentHash: "abc",
		Metadata:    map[string]any{"file_size": 10, "chunk_size": 1000, "source": "doc"},
		Chunks: []models.DocumentChunk{
			{Content: "second", ChunkIndex: 1, Embedding: []float32{0.2}, Metadata: map[string]any{"chunk_length": 6, "source": "chunk"}},
			{Content: "first", ChunkIndex: 0, Embedding: []float32{0.1}},
		},
	}
}

func TestBuildRows(t *testing.T) {
	rows, err := buildRows(sampleDocument())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].ChunkIndex)
	assert.Equal(t, "first", rows[0].Content)
	assert.Equal(t, 1, rows[1].ChunkIndex)
	for _, r := range rows {
		assert.Equal(t, "6f1c0c8e-7f57-4b1a-9d2e-3c4b5a697881", r.DocumentID)
		assert.Equal(t, "notes.txt", r.Filename)
		assert.Equal(t, "abc", r.ContentHash)
		assert.Equal(t, 10, r.Metadata["file_size"])
	}
	assert.Equal(t, "doc", rows[0].Metadata["source"], "document metadata when chunk has none")
	assert.Equal(t, "chunk", rows[1].Metadata["source"], "chunk metadata wins")
	assert.Equal(t, 6, rows[1].Metadata["chunk_length"])
}

func TestBuildRows_AssignsDocumentID(t *testing.T) {
	doc := sampleDocument()
	doc.ID = ""
	rows, err := buildRows(doc)
	require.NoError(t, err)
	assert.NotEmpty(t, rows[0].DocumentID)
	assert.Equal(t, rows[0].DocumentID, rows[1].DocumentID)
}

func TestBuildRows_Invalid(t *testing.T) {
	_, err := buildRows(nil)
	assert.Error(t, err)

	doc := sampleDocument()
	doc.ContentHash = ""
	_, err = buildRows(doc)
	assert.Error(t, err)

	doc = sampleDocument()
	doc.Chunks = nil
	_, err = buildRows(doc)
	assert.Error(t, err)

	doc = sampleDocument()
	doc.Chunks[0].ChunkIndex = 2
	_, err = buildRows(doc)
	assert.Error(t, err, "gap in indices")

	doc = sampleDocument()
	doc.Chunks[1].Content = ""
	_, err = buildRows(doc)
	assert.Error(t, err)
}

func TestDocumentFromRows_SortsByIndex(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []chunkRow{
		{DocumentID: "d", Filename: "a.txt", ContentHash: "h", ChunkIndex: 2, Content: "c", CreatedAt: created},
		{DocumentID: "d", Filename: "a.txt", ContentHash: "h", ChunkIndex: 0, Content: "a", CreatedAt: created},
		{DocumentID: "d", Filename: "a.txt", ContentHash: "h", ChunkIndex: 1, Content: "b", CreatedAt: created},
	}

	doc := documentFromRows(rows)
	require.NotNil(t, doc)
	assert.Equal(t, "d", doc.ID)
	assert.Equal(t, "a.txt", doc.Filename)
	require.NotNil(t, doc.CreatedAt)
	assert.True(t, created.Equal(*doc.CreatedAt))
	require.Equal(t, 3, doc.ChunkCount())
	for i, c := range doc.Chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
	assert.Equal(t, "a", doc.Chunks[0].Content)
	assert.Equal(t, "a", doc.Preview())

	assert.Nil(t, documentFromRows(nil))
}

func TestRowsRoundTrip_KeepsDocumentMetadata(t *testing.T) {
	doc := &models.Document{
		ID:          "d",
		Filename:    "a.txt",
		ContentHash: "h",
		Metadata:    map[string]any{"chunk_size": 1000, "chunk_overlap": 200, "total_chunks": 1},
		Chunks: []models.DocumentChunk{{
			Content:    strings.Repeat("x", 50),
			ChunkIndex: 0,
			Metadata:   map[string]any{"chunk_length": 50, "start_offset": 0},
		}},
	}

	rows, err := buildRows(doc)
	require.NoError(t, err)
	got := documentFromRows(rows)
	require.NotNil(t, got)

	assert.Equal(t, 1000, got.Metadata["chunk_size"])
	assert.Equal(t, 200, got.Metadata["chunk_overlap"])
	assert.Equal(t, 50, got.Chunks[0].Metadata["chunk_length"])
}
