package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/statspub/internal/config"
	"github.com/JonMunkholm/statspub/internal/database"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run database migrations",
		Long:      "Apply, roll back or list the embedded schema migrations. The database defaults to DATABASE_URL.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(database.MigrateUp), string(database.MigrateDown), string(database.MigrateStatus)},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := database.MigrateUp
			if len(args) == 1 {
				command = database.MigrateCommand(args[0])
			}

			url := databaseURL
			if url == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				url = cfg.Database.URL
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := pgxpool.New(ctx, url)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}

			if err := database.Migrate(pool, command); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", command)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (default: $DATABASE_URL)")
	return cmd
}
