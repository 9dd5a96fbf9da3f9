// Package migration applies the embedded schema migrations on startup so a
// fresh deployment is usable out of the box, for both the bundled sqlite
// database and self-hosted postgres.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func RunMigrations(db *sql.DB, driverName string) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, name, err := databaseDriver(db, driverName)
	if err != nil {
		return err
	}

	migrator, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

func databaseDriver(db *sql.DB, driverName string) (database.Driver, string, error) {
	switch strings.ToLower(strings.TrimSpace(driverName)) {
	case "postgres":
		driver, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			return nil, "", fmt.Errorf("create migration driver: %w", err)
		}
		return driver, "postgres", nil
	case "sqlite", "":
		driver, err := sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, "", fmt.Errorf("create migration driver: %w", err)
		}
		return driver, "sqlite", nil
	default:
		return nil, "", fmt.Errorf("unsupported migration driver %q", driverName)
	}
}
