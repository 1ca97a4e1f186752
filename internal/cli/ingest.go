package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/vectordb/internal/core/ingestion_engine"
	"github.com/markdave123-py/vectordb/internal/models"
)

func newIngestCommand(r *root) *cobra.Command {
	var (
		failOnError bool
		noProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a file or every supported file in a directory",
		Long: `Ingest a single file, or every supported file directly inside a
directory. Each file is reported on its own line; a file that fails does not
stop the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, statErr := os.Stat(path)
			isDir := statErr == nil && info.IsDir()

			var bar *progressbar.ProgressBar
			onDone := ingestion_engine.WithProgress(func(models.ProcessingResult) {
				if bar != nil {
					_ = bar.Add(1)
				}
			})

			a, err := r.open(cmd, onDone)
			if err != nil {
				return err
			}
			defer closeApp(a)

			ctx := cmd.Context()
			if err := a.Prepare(ctx); err != nil {
				return fmt.Errorf("preparing storage: %w", err)
			}

			var results []models.ProcessingResult
			if isDir {
				files, err := a.Ingestor.Files(path)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					cmd.Printf("No supported files found in %s\n", path)
					return nil
				}
				if !noProgress {
					bar = newProgressBar(cmd.ErrOrStderr(), len(files))
				}
				results, err = a.Ingestor.IngestDirectory(ctx, path)
				if bar != nil {
					_ = bar.Finish()
				}
				if err != nil {
					return err
				}
			} else {
				results = []models.ProcessingResult{a.Ingestor.IngestFile(ctx, path)}
			}

			failed := printResults(cmd.OutOrStdout(), results, isDir)
			if failOnError && failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit non-zero when any file fails")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// printResults writes one line per file and, for directories, the totals.
// It returns the number of failed files.
func printResults(w io.Writer, results []models.ProcessingResult, summary bool) int {
	var ok, failed, chunks int
	for _, res := range results {
		switch res.Outcome {
		case models.OutcomeStored:
			ok++
			chunks += res.ChunksProcessed
			fmt.Fprintf(w, "✓ %s: stored %d chunks (%.2fs)\n", res.Filename, res.ChunksProcessed, res.ProcessingTime)
		case models.OutcomeAlreadyExists:
			ok++
			chunks += res.ChunksProcessed
			fmt.Fprintf(w, "✓ %s: %s (%d chunks)\n", res.Filename, res.ErrorMessage, res.ChunksProcessed)
		default:
			failed++
			fmt.Fprintf(w, "✗ %s: %s\n", res.Filename, res.ErrorMessage)
		}
	}
	if summary {
		fmt.Fprintf(w, "\nFiles: %d/%d succeeded, chunks processed: %d\n", ok, len(results), chunks)
	}
	return failed
}
