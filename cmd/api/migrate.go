package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reparafacil/repair-service/internal/persistence"
)

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to Postgres",
		Long: `Applies every .sql file in the migrations directory in lexical order.
Migrations are idempotent so the command is safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if rt.pg == nil {
				return fmt.Errorf("migrate: POSTGRES_DSN is not configured")
			}
			applied, err := rt.migrate(cmd.Context(), dir)
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", persistence.DefaultMigrationsDir, "directory holding SQL migrations")
	return cmd
}
