package db

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/vectordb/internal/models"
)

// chunkRow is one row of the chunk table. Document fields repeat on every row.
type chunkRow struct {
	DocumentID  string
	Filename    string
	FilePath    string
	ContentHash string
	ChunkIndex  int
	Content     string
	Embedding   []float32
	Metadata    map[string]any
	CreatedAt   time.Time
}

// buildRows flattens doc into rows. Chunk metadata wins over document
// metadata on key collisions. Indices must be dense from zero.
func buildRows(doc *models.Document) ([]chunkRow, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	if strings.TrimSpace(doc.ContentHash) == "" {
		return nil, errors.New("document has no content hash")
	}
	if len(doc.Chunks) == 0 {
		return nil, errors.New("document has no chunks")
	}

	docID := doc.ID
	if docID == "" {
		docID = uuid.NewString()
	}

	chunks := append([]models.DocumentChunk(nil), doc.Chunks...)
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })

	rows := make([]chunkRow, len(chunks))
	for i, c := range chunks {
		if c.ChunkIndex != i {
			return nil, fmt.Errorf("chunk indices must be 0..%d, found %d at position %d", len(chunks)-1, c.ChunkIndex, i)
		}
		if c.Content == "" {
			return nil, fmt.Errorf("chunk %d is empty", i)
		}
		rows[i] = chunkRow{
			DocumentID:  docID,
			Filename:    doc.Filename,
			FilePath:    doc.FilePath,
			ContentHash: doc.ContentHash,
			ChunkIndex:  c.ChunkIndex,
			Content:     c.Content,
			Embedding:   c.Embedding,
			Metadata:    mergeMetadata(doc.Metadata, c.Metadata),
		}
	}
	return rows, nil
}

func mergeMetadata(doc, chunk map[string]any) map[string]any {
	out := make(map[string]any, len(doc)+len(chunk))
	maps.Copy(out, doc)
	maps.Copy(out, chunk)
	return out
}

// documentFromRows rebuilds a document from its rows in any order. The first
// row supplies the document-level fields; chunk metadata is the stored
// merged map.
func documentFromRows(rows []chunkRow) *models.Document {
	if len(rows) == 0 {
		return nil
	}
	first := rows[0]
	created := first.CreatedAt

	doc := &models.Document{
		ID:          first.DocumentID,
		Filename:    first.Filename,
		FilePath:    first.FilePath,
		ContentHash: first.ContentHash,
		Metadata:    first.Metadata,
		Chunks:      make([]models.DocumentChunk, len(rows)),
	}
	if !created.IsZero() {
		doc.CreatedAt = &created
	}
	for i, r := range rows {
		doc.Chunks[i] = models.DocumentChunk{
			Content:    r.Content,
			ChunkIndex: r.ChunkIndex,
			Embedding:  r.Embedding,
			Metadata:   r.Metadata,
		}
	}
	sort.SliceStable(doc.Chunks, func(i, j int) bool { return doc.Chunks[i].ChunkIndex < doc.Chunks[j].ChunkIndex })
	return doc
}
