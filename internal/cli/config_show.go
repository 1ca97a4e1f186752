package cli

import (
	"github.com/spf13/cobra"
)

func newConfigShowCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "config-show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := r.loadConfig(false)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, _ = cmd.OutOrStdout().Write(out)
			return cfg.Validate()
		},
	}
}
