package ingestion_engine

import (
	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/core"
	"github.com/markdave123-py/vectordb/internal/logging"
	"github.com/markdave123-py/vectordb/internal/models"
)

// IngestConfig tunes the pipeline.
//
// ChunkSize:    characters per chunk.
// ChunkOverlap: characters shared by consecutive chunks.
// Concurrency:  files processed at once by IngestDirectory; 0 means all.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
}

// DocumentIngestor orchestrates hashing, chunking, embedding and storage:
//
// store:     persistence for chunk rows.
// embedder:  embedding provider (Ollama/Gemini).
// extractor: reads and validates source files.
// archive:   optional object storage for the raw files of new documents.
type DocumentIngestor struct {
	store     core.ChunkStore
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	chunker   *Chunker
	cfg       *IngestConfig

	archive       core.ObjectClient
	archivePrefix string
	progress      func(models.ProcessingResult)
	logger        *zap.Logger
}

type Option func(*DocumentIngestor)

func WithLogger(l *zap.Logger) Option {
	return func(i *DocumentIngestor) { i.logger = logging.OrNop(l) }
}

// WithArchive uploads the raw text of every newly stored document under prefix.
func WithArchive(obj core.ObjectClient, prefix string) Option {
	return func(i *DocumentIngestor) {
		i.archive = obj
		i.archivePrefix = prefix
	}
}

// WithProgress registers a callback run once per finished file. It may be
// called from several goroutines at once.
func WithProgress(fn func(models.ProcessingResult)) Option {
	return func(i *DocumentIngestor) { i.progress = fn }
}
