package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// openMigrationDriver opens a separate connection for migrations. Closing the
// returned driver closes that connection.
func openMigrationDriver(dialect Dialect, dsn string) (database.Driver, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case SQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		err = fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s driver: %w", dialect, err)
	}
	return driver, nil
}

// RunMigrations applies the embedded schema for the dialect up to the latest
// version.
func RunMigrations(dialect Dialect, dsn string) error {
	driver, err := openMigrationDriver(dialect, dsn)
	if err != nil {
		return err
	}

	d, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		driver.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, string(dialect), driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// MigrationVersion reports the schema version currently applied. A database
// that was never migrated reports version 0.
func MigrationVersion(dialect Dialect, dsn string) (uint, bool, error) {
	driver, err := openMigrationDriver(dialect, dsn)
	if err != nil {
		return 0, false, err
	}
	defer driver.Close()

	version, dirty, err := driver.Version()
	if err != nil {
		return 0, false, fmt.Errorf("read version: %w", err)
	}
	if version == database.NilVersion {
		return 0, dirty, nil
	}
	return uint(version), dirty, nil
}
