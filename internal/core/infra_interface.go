package core

import (
	"context"

	"github.com/markdave123-py/vectordb/internal/models"
)

// ChunkStore persists documents as one row per chunk and abstracts
// Postgres/pgvector so higher layers never depend on a specific DB.
type ChunkStore interface {
	// Store writes every chunk of doc. It reports true only if all rows were
	// accepted. A unique (content_hash, chunk_index) collision yields an
	// error matching ErrDuplicate.
	Store(ctx context.Context, doc *models.Document) (bool, error)
	// FindByHash returns nil, nil when no document has the given hash.
	FindByHash(ctx context.Context, contentHash string) (*models.Document, error)
	HealthCheck(ctx context.Context) bool

	SearchChunks(ctx context.Context, query []float32, limit int) ([]models.SearchHit, error)
	ListDocuments(ctx context.Context, limit, offset int) ([]models.DocumentSummary, error)
	// DeleteByHash returns the number of chunk rows removed.
	DeleteByHash(ctx context.Context, contentHash string) (int, error)
	Stats(ctx context.Context) (models.Stats, error)
	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
}
