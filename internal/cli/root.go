// Package cli implements the vectordb command line.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/app"
	"github.com/markdave123-py/vectordb/internal/config"
	"github.com/markdave123-py/vectordb/internal/core/ingestion_engine"
	"github.com/markdave123-py/vectordb/internal/logging"
)

// Builder constructs the application for one command run.
type Builder func(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...ingestion_engine.Option) (*app.App, error)

type root struct {
	configPath string
	verbose    bool
	build      Builder
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	cmd := newRootCommand(app.NewApp)
	cmd.SetOut(os.Stdout)
	return cmd
}

func newRootCommand(build Builder) *cobra.Command {
	r := &root{build: build}

	cmd := &cobra.Command{
		Use:   "vectordb",
		Short: "Ingest text files into a pgvector store",
		Long: `vectordb reads .txt files, splits them into overlapping chunks, embeds
every chunk with a local Ollama model and stores the chunks with their
vectors in Postgres (pgvector). Files already stored are detected by content
hash and skipped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&r.configPath, "config", config.DefaultConfigFile, "config file path")
	cmd.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newIngestCommand(r),
		newStatusCommand(r),
		newConfigShowCommand(r),
		newSearchCommand(r),
		newListCommand(r),
		newGetCommand(r),
		newDeleteCommand(r),
		newStatsCommand(r),
		newMigrateCommand(r),
		newServeCommand(r),
		newTokenCommand(r),
	)
	return cmd
}

// loadConfig reads the configuration and, when validate is set, rejects it
// if it cannot drive a run.
func (r *root) loadConfig(validate bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(r.configPath)
	if err != nil {
		return nil, err
	}
	if r.verbose {
		cfg.LogLevel = "debug"
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// open loads and validates the configuration and builds the application.
// The caller must Close the returned App.
func (r *root) open(cmd *cobra.Command, opts ...ingestion_engine.Option) (*app.App, error) {
	cfg, err := r.loadConfig(true)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, err
	}
	a, err := r.build(cmd.Context(), cfg, logger, opts...)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	a.Close()
	_ = a.Logger.Sync()
}
