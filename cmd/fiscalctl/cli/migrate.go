package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facturly/facturly/internal/platform/db"
)

func newMigrateCommand() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				return fmt.Errorf("migrate: --dsn or PG_DSN required")
			}
			pool, err := db.New(cmd.Context(), dsn, 2)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", envOr("PG_DSN", ""), "PostgreSQL DSN")
	return cmd
}
