package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/core"
	objectclient "github.com/markdave123-py/vectordb/internal/core/object-client"
	"github.com/markdave123-py/vectordb/internal/logging"
	"github.com/markdave123-py/vectordb/internal/models"
)

var (
	ErrEmptyQuery       = errors.New("query is empty")
	ErrDocumentNotFound = errors.New("document not found")
)

const DefaultSearchLimit = 5

// DocumentService serves read and delete operations over stored documents.
type DocumentService struct {
	store         core.ChunkStore
	embedder      core.EmbeddingProvider
	archive       core.ObjectClient
	archivePrefix string
	logger        *zap.Logger
}

func NewDocumentService(store core.ChunkStore, embedder core.EmbeddingProvider, logger *zap.Logger) *DocumentService {
	return &DocumentService{store: store, embedder: embedder, logger: logging.OrNop(logger)}
}

// WithArchive makes Delete also remove the archived raw file.
func (s *DocumentService) WithArchive(obj core.ObjectClient, prefix string) *DocumentService {
	s.archive = obj
	s.archivePrefix = prefix
	return s
}

// Search embeds query and returns the nearest chunks.
func (s *DocumentService) Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	vec, err := s.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return s.store.SearchChunks(ctx, vec, limit)
}

func (s *DocumentService) List(ctx context.Context, limit, offset int) ([]models.DocumentSummary, error) {
	return s.store.ListDocuments(ctx, limit, offset)
}

// Get returns ErrDocumentNotFound when no document has the hash.
func (s *DocumentService) Get(ctx context.Context, contentHash string) (*models.Document, error) {
	doc, err := s.store.FindByHash(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes every chunk of the document and returns how many were removed.
func (s *DocumentService) Delete(ctx context.Context, contentHash string) (int, error) {
	doc, err := s.Get(ctx, contentHash)
	if err != nil {
		return 0, err
	}
	n, err := s.store.DeleteByHash(ctx, contentHash)
	if err != nil {
		return 0, err
	}

	if s.archive != nil {
		key := objectclient.ArchiveKey(s.archivePrefix, contentHash, doc.Filename)
		if err := s.archive.DeleteFile(ctx, key); err != nil {
			s.logger.Warn("archive delete failed", zap.String("key", key), zap.Error(err))
		}
	}
	s.logger.Info("document deleted", zap.String("hash", contentHash), zap.Int("chunks", n))
	return n, nil
}

func (s *DocumentService) Stats(ctx context.Context) (models.Stats, error) {
	return s.store.Stats(ctx)
}
