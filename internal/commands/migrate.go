package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"chitieu/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	var (
		backendName string
		dsn         string
		statusOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply the embedded schema migrations to a sqlite or postgres database. Defaults come from DATA_BACKEND, SQLITE_DB_PATH and DATABASE_URL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if backendName == "" {
				backendName = cfg.DataBackend
			}

			var dialect storage.Dialect
			switch backendName {
			case "sqlite":
				dialect = storage.SQLite
				if dsn == "" {
					dsn = cfg.SQLiteDBPath
				}
				if dsn != "" {
					if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
						return fmt.Errorf("creating database directory: %w", err)
					}
				}
			case "postgres":
				dialect = storage.Postgres
				if dsn == "" {
					dsn = cfg.DatabaseURL
				}
			default:
				return fmt.Errorf("backend %q has no schema: use sqlite or postgres", backendName)
			}
			if dsn == "" {
				return fmt.Errorf("no database configured for %s", backendName)
			}

			if !statusOnly {
				if err := storage.RunMigrations(dialect, dsn); err != nil {
					return err
				}
			}

			version, dirty, err := storage.MigrationVersion(dialect, dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d", dialect, version)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", "", "sqlite or postgres (default DATA_BACKEND)")
	cmd.Flags().StringVar(&dsn, "db", "", "database file or URL (default from environment)")
	cmd.Flags().BoolVar(&statusOnly, "status", false, "only print the current version")

	return cmd
}
