// Package migrations applies the embedded schema migrations of the SQLite
// task registry.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Apply brings the task registry schema of the given database up to date.
// A database that is already at the latest version is left untouched.
func Apply(db *sql.DB, logger log.Logger) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return fmt.Errorf("could not load embedded migrations: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Errorf("could not close migration source: %s", err)
		}
	}()

	inst, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	err = inst.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debugf("Task registry schema already up to date")
	case err != nil:
		return fmt.Errorf("could not apply migrations: %w", err)
	default:
		logger.Debugf("Task registry schema migrated")
	}

	return nil
}
