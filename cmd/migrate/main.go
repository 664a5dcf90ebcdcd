package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"

	"github.com/JaimeStill/cerebra/internal/config"
	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/internal/migrations"
	"github.com/JaimeStill/cerebra/pkg/database"
)

const envURL = "CEREBRA_DB_URL"

func main() {
	var (
		dbURL   = flag.String("url", "", "Database URL (defaults to the configured database)")
		driver  = flag.String("driver", "", "Migration set to apply: sqlite or postgres (defaults to the configured driver)")
		up      = flag.Bool("up", false, "Run all up migrations")
		down    = flag.Bool("down", false, "Run all down migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *driver != "" {
		cfg.Database.Driver = *driver
	}
	db := infrastructure.DatabaseConfig(cfg)
	if db.Driver == database.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(db.Path), 0o755); err != nil {
			log.Fatalf("failed to create database directory: %v", err)
		}
	}

	if *dbURL == "" {
		*dbURL = os.Getenv(envURL)
	}
	if *dbURL == "" {
		*dbURL = db.URL()
	}

	source, err := migrations.Source(db.Driver)
	if err != nil {
		log.Fatalf("failed to create migration source: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, *dbURL)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("failed to get version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			log.Fatalf("failed to force version: %v", err)
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run up migrations: %v", err)
		}
		fmt.Println("migrations applied successfully")
	case *down:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run down migrations: %v", err)
		}
		fmt.Println("migrations reverted successfully")
	case *steps != 0:
		if err := m.Steps(*steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run migrations: %v", err)
		}
		fmt.Printf("applied %d migration steps\n", *steps)
	default:
		fmt.Println("usage: migrate [-url <database-url>] [-driver sqlite|postgres] [-up|-down|-steps N|-version|-force N]")
		flag.PrintDefaults()
	}
}
