package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("one or more backends are unavailable")

func newStatusCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the embedding and storage backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			st := a.Ingestor.HealthCheck(cmd.Context())
			cmd.Printf("Embedding (%s, %s): %s\n", a.Config.EmbedProvider, a.Ingestor.EmbeddingModel(), mark(st.Embedding))
			cmd.Printf("Storage (table %s): %s\n", a.Config.TableName, mark(st.Storage))
			cmd.Printf("Overall: %s\n", mark(st.Overall))
			if !st.Overall {
				return errUnhealthy
			}
			return nil
		},
	}
}

func mark(ok bool) string {
	if ok {
		return "✓ healthy"
	}
	return "✗ unavailable"
}
