// Package database manages the history database connection for either an
// embedded SQLite file or a PostgreSQL server, with lifecycle coordination.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/JaimeStill/cerebra/pkg/lifecycle"
)

var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// StartupHook runs once the connection has been verified, before the database reports ready.
type StartupHook func(ctx context.Context, db *sql.DB, driver string) error

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Driver returns the configured driver name (DriverSQLite or DriverPostgres).
	Driver() string
	// Ready reports whether the connection was verified and startup hooks succeeded.
	Ready() bool
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	conn        *sql.DB
	driver      string
	logger      *slog.Logger
	connTimeout time.Duration
	hooks       []StartupHook
	ready       atomic.Bool
}

// New creates a database system with the given configuration.
// It opens the pool and configures limits but does not connect until Start is called.
func New(cfg *Config, logger *slog.Logger, hooks ...StartupHook) (System, error) {
	driverName, dsn, err := openParams(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		driver:      cfg.Driver,
		logger:      logger.With("system", "database", "driver", cfg.Driver),
		connTimeout: cfg.ConnTimeoutDuration(),
		hooks:       hooks,
	}, nil
}

func openParams(cfg *Config) (driverName, dsn string, err error) {
	switch cfg.Driver {
	case DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", "", fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = cfg.Dsn() + "?"
		for i, p := range sqlitePragmas {
			if i > 0 {
				dsn += "&"
			}
			dsn += "_pragma=" + p
		}
		return "sqlite", dsn, nil
	case DriverPostgres:
		return "pgx", cfg.Dsn(), nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Driver() string {
	return d.driver
}

func (d *database) Ready() bool {
	return d.ready.Load()
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() {
		pingCtx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.conn.PingContext(pingCtx); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return
		}

		for _, hook := range d.hooks {
			if err := hook(lc.Context(), d.conn, d.driver); err != nil {
				d.logger.Error("database startup hook failed", "error", err)
				return
			}
		}

		d.ready.Store(true)
		d.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}
