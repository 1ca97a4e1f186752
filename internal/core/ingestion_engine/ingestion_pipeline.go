package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/vectordb/internal/core"
	objectclient "github.com/markdave123-py/vectordb/internal/core/object-client"
	"github.com/markdave123-py/vectordb/internal/models"
)

// NewDocumentIngestor wires the pipeline. The chunk settings are validated here.
func NewDocumentIngestor(store core.ChunkStore, emb core.EmbeddingProvider, extractor core.DocumentExtractor, cfg *IngestConfig, opts ...Option) (*DocumentIngestor, error) {
	if cfg == nil {
		return nil, errors.New("ingest configuration is nil")
	}
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	i := &DocumentIngestor{
		store:     store,
		embedder:  emb,
		extractor: extractor,
		chunker:   chunker,
		cfg:       cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IngestFile runs one file through the pipeline. It never returns an error:
// every failure, including a panic, becomes a failed result.
func (i *DocumentIngestor) IngestFile(ctx context.Context, path string) (res models.ProcessingResult) {
	start := time.Now()
	filename := filepath.Base(path)

	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("panic while ingesting", zap.String("file", path), zap.Any("panic", r))
			res = models.Failed(filename, fmt.Errorf("internal error: %v", r), time.Since(start))
		}
		if i.progress != nil {
			i.progress(res)
		}
	}()

	return i.ingest(ctx, path, filename, start)
}

func (i *DocumentIngestor) ingest(ctx context.Context, path, filename string, start time.Time) models.ProcessingResult {
	log := i.logger.With(zap.String("file", path))

	text, size, err := i.extractor.ExtractText(ctx, path)
	if err != nil {
		log.Warn("rejected file", zap.Error(err))
		return models.Failed(filename, err, time.Since(start))
	}

	hash := ContentHash(text)
	existing, err := i.store.FindByHash(ctx, hash)
	if err != nil {
		log.Error("duplicate lookup failed", zap.Error(err))
		return models.Failed(filename, fmt.Errorf("checking for existing document: %w", err), time.Since(start))
	}
	if existing != nil {
		log.Info("document already stored", zap.String("hash", hash), zap.Int("chunks", existing.ChunkCount()))
		return models.AlreadyExists(filename, existing.ChunkCount(), time.Since(start))
	}

	chunks := i.chunker.Chunk(text)
	texts := make([]string, len(chunks))
	for idx, c := range chunks {
		texts[idx] = c.Content
	}
	log.Debug("chunked document", zap.Int("chunks", len(chunks)), zap.Int64("bytes", size))

	vecs, err := i.embedder.GenerateBatch(ctx, texts)
	if err != nil {
		log.Error("embedding failed", zap.Error(err))
		return models.Failed(filename, fmt.Errorf("generating embeddings: %w", err), time.Since(start))
	}
	if len(vecs) != len(chunks) {
		return models.Failed(filename, fmt.Errorf("generating embeddings: got %d vectors for %d chunks", len(vecs), len(chunks)), time.Since(start))
	}
	for idx := range chunks {
		chunks[idx].Embedding = vecs[idx]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	doc := &models.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		FilePath:    absPath,
		ContentHash: hash,
		Chunks:      chunks,
		Metadata: map[string]any{
			"file_size":       size,
			"total_chunks":    len(chunks),
			"chunk_size":      i.cfg.ChunkSize,
			"chunk_overlap":   i.cfg.ChunkOverlap,
			"embedding_model": i.embedder.ModelName(),
		},
	}

	ok, err := i.store.Store(ctx, doc)
	switch {
	case errors.Is(err, core.ErrDuplicate):
		// Another writer stored the same content between lookup and insert.
		return i.alreadyStored(ctx, filename, hash, len(chunks), start)
	case err != nil:
		log.Error("store failed", zap.Error(err))
		return models.Failed(filename, fmt.Errorf("storing document: %w", err), time.Since(start))
	case !ok:
		return models.Failed(filename, errors.New("storing document: not all chunks were accepted"), time.Since(start))
	}

	i.archiveRaw(ctx, log, hash, filename, text)

	log.Info("document stored", zap.String("hash", hash), zap.Int("chunks", len(chunks)))
	return models.Stored(filename, len(chunks), time.Since(start))
}

func (i *DocumentIngestor) alreadyStored(ctx context.Context, filename, hash string, local int, start time.Time) models.ProcessingResult {
	count := local
	if existing, err := i.store.FindByHash(ctx, hash); err == nil && existing != nil {
		count = existing.ChunkCount()
	}
	i.logger.Info("document stored concurrently", zap.String("file", filename), zap.String("hash", hash))
	return models.AlreadyExists(filename, count, time.Since(start))
}

// archiveRaw copies the source text to object storage. The rows are already
// committed, so failures are only logged.
func (i *DocumentIngestor) archiveRaw(ctx context.Context, log *zap.Logger, hash, filename, text string) {
	if i.archive == nil {
		return
	}
	key := objectclient.ArchiveKey(i.archivePrefix, hash, filename)
	url, err := i.archive.UploadFile(ctx, key, []byte(text), "text/plain; charset=utf-8")
	if err != nil {
		log.Warn("archive upload failed", zap.String("key", key), zap.Error(err))
		return
	}
	log.Debug("archived raw file", zap.String("url", url))
}

// Files lists the eligible files directly inside dir, sorted by name.
func (i *DocumentIngestor) Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &core.FileError{Path: dir, Err: err}
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !i.extractor.Supports(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// IngestDirectory ingests every eligible file directly inside dir. Files are
// processed concurrently; one failing file never stops the others. Results
// follow directory order. The error is reserved for an unreadable dir.
func (i *DocumentIngestor) IngestDirectory(ctx context.Context, dir string) ([]models.ProcessingResult, error) {
	paths, err := i.Files(dir)
	if err != nil {
		return nil, err
	}
	results := make([]models.ProcessingResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	i.logger.Info("ingesting directory", zap.String("dir", dir), zap.Int("files", len(paths)))

	var g errgroup.Group
	if i.cfg.Concurrency > 0 {
		g.SetLimit(i.cfg.Concurrency)
	}
	for idx, p := range paths {
		g.Go(func() error {
			results[idx] = i.IngestFile(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// HealthCheck probes both backends concurrently.
func (i *DocumentIngestor) HealthCheck(ctx context.Context) models.HealthStatus {
	var (
		st models.HealthStatus
		g  errgroup.Group
	)
	g.Go(func() error {
		st.Embedding = i.embedder.HealthCheck(ctx)
		return nil
	})
	g.Go(func() error {
		st.Storage = i.store.HealthCheck(ctx)
		return nil
	})
	_ = g.Wait()

	st.Overall = st.Embedding && st.Storage
	return st
}

// EmbeddingModel names the model vectors are generated with.
func (i *DocumentIngestor) EmbeddingModel() string {
	return i.embedder.ModelName()
}
