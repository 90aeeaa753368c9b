package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/pkg/database"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the catalog schema migrations",
	Long: `Apply the migrations in DB_MIGRATION_FOLDER_PATH up to DB_MIGRATION_VERSION
(0 = latest). DB_MIGRATION_FORCE clears a dirty version first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, appOptions{}, func(_ context.Context, a *app) error {
			return database.NewMigrationService(a.log, a.cfg.Migration()).Migrate(a.db, a.cfg.DatabaseName)
		})
	},
}
