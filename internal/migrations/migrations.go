// Package migrations embeds the history schema for each supported database
// driver and applies it with golang-migrate.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/JaimeStill/cerebra/pkg/database"
)

//go:embed sql
var files embed.FS

// Source returns the migration files for driver.
func Source(driver string) (source.Driver, error) {
	switch driver {
	case database.DriverSQLite, database.DriverPostgres:
		return iofs.New(files, "sql/"+driver)
	}
	return nil, fmt.Errorf("no migrations for driver %q", driver)
}

// Run applies every pending up migration to db. It reports the resulting
// schema version.
func Run(ctx context.Context, db *sql.DB, driver string) (uint, error) {
	src, err := Source(driver)
	if err != nil {
		return 0, err
	}

	target, err := instance(db, driver)
	if err != nil {
		return 0, err
	}

	// Closing m would close db, which the caller still owns.
	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	return version, nil
}

// Hook adapts Run to a database startup hook.
func Hook(logger *slog.Logger) database.StartupHook {
	logger = logger.With("system", "migrations")
	return func(ctx context.Context, db *sql.DB, driver string) error {
		version, err := Run(ctx, db, driver)
		if err != nil {
			return err
		}
		logger.Info("schema up to date", "driver", driver, "version", version)
		return nil
	}
}

func instance(db *sql.DB, driver string) (migratedb.Driver, error) {
	switch driver {
	case database.DriverPostgres:
		d, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			return nil, fmt.Errorf("postgres migration driver: %w", err)
		}
		return d, nil
	case database.DriverSQLite:
		d, err := sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, fmt.Errorf("sqlite migration driver: %w", err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("no migrations for driver %q", driver)
}
