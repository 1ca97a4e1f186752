package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	middleware "github.com/markdave123-py/vectordb/internal/api/middlewares"
	"github.com/markdave123-py/vectordb/internal/app"
)

func newMigrateCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the chunk table and extensions if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := a.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			cmd.Printf("Schema ready (table %s)\n", a.Config.TableName)
			return nil
		},
	}
}

func newServeCommand(r *root) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if port == "" {
				port = a.Config.Port
			}
			srv, err := app.NewServer(a, port)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.Prepare(ctx); err != nil {
				return fmt.Errorf("preparing storage: %w", err)
			}
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default from config)")
	return cmd
}

func newTokenCommand(r *root) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := r.loadConfig(false)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("api_jwt_secret is not set")
			}
			token, err := middleware.IssueToken([]byte(cfg.JWTSecret), subject, ttl)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
