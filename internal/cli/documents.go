package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/vectordb/internal/services"
)

func newSearchCommand(r *root) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the stored chunks closest to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			hits, err := a.Documents.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				cmd.Println("No results.")
				return nil
			}
			for i, h := range hits {
				cmd.Printf("%d. %s [chunk %d] distance %.4f\n", i+1, h.Filename, h.ChunkIndex, h.Distance)
				cmd.Printf("   %s\n", snippet(h.Content, 160))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", services.DefaultSearchLimit, "maximum number of results")
	return cmd
}

func newListCommand(r *root) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 || offset < 0 {
				return errors.New("limit and offset must not be negative")
			}
			a, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			docs, err := a.Documents.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				cmd.Println("No documents stored.")
				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Hash", "Filename", "Chunks", "Ingested"})
			table.SetBorder(false)
			for _, d := range docs {
				ingested := "-"
				if d.CreatedAt != nil {
					ingested = humanize.Time(*d.CreatedAt)
				}
				table.Append([]string{shortHash(d.ContentHash), d.Filename, strconv.Itoa(d.ChunkCount), ingested})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of documents")
	cmd.Flags().IntVar(&offset, "offset", 0, "documents to skip")
	return cmd
}

func newGetCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "get <hash>",
		Short: "Show a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			doc, err := a.Documents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Filename:   %s\n", doc.Filename)
			cmd.Printf("Path:       %s\n", doc.FilePath)
			cmd.Printf("Hash:       %s\n", doc.ContentHash)
			cmd.Printf("Chunks:     %d\n", doc.ChunkCount())
			cmd.Printf("Dimension:  %d\n", doc.EmbeddingDimension())
			if doc.CreatedAt != nil {
				cmd.Printf("Ingested:   %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			cmd.Printf("Preview:    %s\n", doc.Preview())
			return nil
		},
	}
}

func newDeleteCommand(r *root) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <hash>",
		Short: "Delete every chunk of a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			ctx := cmd.Context()
			doc, err := a.Documents.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if !yes {
				cmd.Printf("Delete %s (%d chunks)? [y/N] ", doc.Filename, doc.ChunkCount())
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					cmd.Println("Aborted.")
					return nil
				}
			}

			n, err := a.Documents.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %s (%d chunks)\n", doc.Filename, n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newStatsCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			st, err := a.Documents.Stats(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Documents:  %d\n", st.Documents)
			cmd.Printf("Chunks:     %d\n", st.Chunks)
			if st.TableSize > 0 {
				cmd.Printf("Table size: %s\n", humanize.Bytes(uint64(st.TableSize)))
			}
			cmd.Printf("Model:      %s\n", a.Ingestor.EmbeddingModel())
			return nil
		},
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// snippet flattens whitespace and cuts s to at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
