package cmd

import (
	"fmt"
	"log/slog"

	"github.com/jandubois/netrics/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("down", false, "Roll back all migrations")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	path := getDatabasePath(cmd)
	if path == "" {
		return fmt.Errorf("database path required (use --database or DATABASE_PATH env var)")
	}
	down, _ := cmd.Flags().GetBool("down")

	if down {
		slog.Info("rolling back all migrations", "database", path)
		if err := db.RollbackMigrations(cmd.Context(), path); err != nil {
			return err
		}
		slog.Info("migrations rolled back")
		return nil
	}

	slog.Info("running migrations", "database", path)
	if err := db.RunMigrations(cmd.Context(), path); err != nil {
		return err
	}
	slog.Info("migrations complete")
	return nil
}
