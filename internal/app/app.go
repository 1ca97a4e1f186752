package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/config"
	"github.com/markdave123-py/vectordb/internal/core"
	db "github.com/markdave123-py/vectordb/internal/core/database"
	"github.com/markdave123-py/vectordb/internal/core/ingestion_engine"
	"github.com/markdave123-py/vectordb/internal/core/llm"
	objectclient "github.com/markdave123-py/vectordb/internal/core/object-client"
	"github.com/markdave123-py/vectordb/internal/logging"
	"github.com/markdave123-py/vectordb/internal/services"
)

// App holds the backend clients and the services built on them. One App is
// built per process from an explicit configuration.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     core.ChunkStore
	Embedder  core.EmbeddingProvider
	Archive   core.ObjectClient
	Ingestor  *ingestion_engine.DocumentIngestor
	Documents *services.DocumentService
}

// NewApp connects the configured backends. No network call is made except
// for the optional S3 credential lookup; call Migrate to verify storage.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...ingestion_engine.Option) (*App, error) {
	logger = logging.OrNop(logger)

	dbClient, err := db.NewDatabaseClient(cfg, logger.Named("storage"))
	if err != nil {
		return nil, err
	}

	embedder, err := llm.NewEmbedder(ctx, cfg, logger.Named("embed"))
	if err != nil {
		_ = dbClient.Close()
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	var archive core.ObjectClient
	if cfg.ArchiveEnabled() {
		s3, err := objectclient.NewS3Client(ctx, cfg, logger.Named("archive"))
		if err != nil {
			_ = dbClient.Close()
			return nil, fmt.Errorf("couldn't initialize the archive: %w", err)
		}
		archive = s3
	}

	a, err := Assemble(cfg, logger, dbClient, embedder, archive, opts...)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	logger.Debug("backends configured",
		zap.String("table", cfg.TableName),
		zap.String("embed_provider", cfg.EmbedProvider),
		zap.String("embed_model", embedder.ModelName()),
		zap.Bool("archive", archive != nil))
	return a, nil
}

// Assemble builds the services on top of already constructed clients.
// archive may be nil.
func Assemble(cfg *config.Config, logger *zap.Logger, store core.ChunkStore, embedder core.EmbeddingProvider, archive core.ObjectClient, opts ...ingestion_engine.Option) (*App, error) {
	logger = logging.OrNop(logger)

	extractor := ingestion_engine.NewTextExtractor(cfg.SupportedExtensions, cfg.MaxFileSizeBytes())
	ingOpts := []ingestion_engine.Option{ingestion_engine.WithLogger(logger.Named("ingest"))}
	if archive != nil {
		ingOpts = append(ingOpts, ingestion_engine.WithArchive(archive, cfg.ArchivePrefix))
	}
	ingOpts = append(ingOpts, opts...)

	ingestor, err := ingestion_engine.NewDocumentIngestor(store, embedder, extractor, &ingestion_engine.IngestConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Concurrency:  cfg.IngestConcurrency,
	}, ingOpts...)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the ingestor: %w", err)
	}

	docs := services.NewDocumentService(store, embedder, logger.Named("documents"))
	if archive != nil {
		docs.WithArchive(archive, cfg.ArchivePrefix)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Embedder:  embedder,
		Archive:   archive,
		Ingestor:  ingestor,
		Documents: docs,
	}, nil
}

type bootstrapper interface {
	Bootstrap(ctx context.Context) error
}

// Migrate verifies storage connectivity and creates the schema if needed.
// Stores without a schema are left alone.
func (a *App) Migrate(ctx context.Context) error {
	b, ok := a.Store.(bootstrapper)
	if !ok {
		return nil
	}
	return b.Bootstrap(ctx)
}

// Prepare runs Migrate when automatic migration is enabled.
func (a *App) Prepare(ctx context.Context) error {
	if !a.Config.AutoMigrate {
		return nil
	}
	return a.Migrate(ctx)
}

func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("closing storage", zap.Error(err))
		}
	}
	if c, ok := a.Embedder.(io.Closer); ok {
		_ = c.Close()
	}
}
