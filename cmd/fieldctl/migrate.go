package main

import (
	"context"
	"fmt"

	"github.com/hugh/fieldops/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
			if err := database.AutoMigrate(e.db.WithContext(ctx)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		}),
	}
}
