// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (logging, database, archive, classifier)
// that the web and API surfaces are built on.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/cerebra/internal/archive"
	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/internal/config"
	"github.com/JaimeStill/cerebra/internal/migrations"
	"github.com/JaimeStill/cerebra/internal/model"
	"github.com/JaimeStill/cerebra/pkg/database"
	"github.com/JaimeStill/cerebra/pkg/lifecycle"
	"github.com/JaimeStill/cerebra/pkg/logging"
	"github.com/JaimeStill/cerebra/pkg/storage"
)

// Infrastructure holds the core systems required by all modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Archive   *archive.Archive
	Model     *model.Adapter
	Paths     artifacts.Paths
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger, err := logging.New(&cfg.Logging, os.Stderr, cfg.Server.DebugEnabled())
	if err != nil {
		return nil, fmt.Errorf("logging init failed: %w", err)
	}
	return NewWithLogger(cfg, logger)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	var hooks []database.StartupHook
	if cfg.Database.Migrate() {
		hooks = append(hooks, migrations.Hook(logger))
	}

	dbCfg := DatabaseConfig(cfg)
	db, err := database.New(&dbCfg, logger, hooks...)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	var store storage.System
	if cfg.Archive.Enabled {
		archiveCfg := cfg.Archive
		archiveCfg.Root = cfg.Paths.Resolve(archiveCfg.Root)

		store, err = storage.New(&archiveCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("archive init failed: %w", err)
		}
	}

	adapter, err := NewModel(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Archive:   archive.New(store, logger),
		Model:     adapter,
		Paths:     ArtifactPaths(&cfg.Paths),
	}, nil
}

// DatabaseConfig returns cfg.Database with a SQLite path resolved against the project root.
func DatabaseConfig(cfg *config.Config) database.Config {
	db := cfg.Database
	if db.Driver == database.DriverSQLite {
		db.Path = cfg.Paths.Resolve(db.Path)
	}
	return db
}

// NewModel builds the configured classifier behind an Adapter gated on cfg.ModelPath.
func NewModel(cfg *config.Config, logger *slog.Logger) (*model.Adapter, error) {
	file := cfg.Model.File
	if file != "" {
		file = cfg.Paths.Resolve(file)
	}
	metadata := cfg.Model.Metadata
	if metadata != "" {
		metadata = cfg.Paths.Resolve(metadata)
	}

	classifier, err := model.New(model.Options{
		Backend:       cfg.Model.Backend,
		ModelPath:     cfg.ModelPath(),
		File:          file,
		Command:       cfg.Model.Command,
		Classes:       cfg.Model.Classes,
		Metadata:      metadata,
		SharedLibrary: cfg.Model.SharedLibrary,
		ImageSize:     cfg.Model.ImageSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("model init failed: %w", err)
	}

	return model.NewAdapter(classifier, ModelGate(cfg), cfg.Model.Classes, logger), nil
}

// ModelGate gates on cfg.ModelPath and, for in-process backends configured
// with a separate file, on that file too.
func ModelGate(cfg *config.Config) model.Gate {
	if cfg.Model.Backend == config.BackendExec || cfg.Model.File == "" {
		return model.NewGate(cfg.ModelPath())
	}
	return model.NewGate(cfg.ModelPath(), cfg.Paths.Resolve(cfg.Model.File))
}

// ArtifactPaths maps the configured directories to the artifact layout
// served beneath /static.
func ArtifactPaths(cfg *config.PathsConfig) artifacts.Paths {
	return artifacts.Paths{
		UploadsDir: cfg.UploadsDir(),
		ChartsDir:  cfg.ChartsDir(),
		UploadsURL: "/static/" + cfg.Uploads,
		ChartsURL:  "/static/" + cfg.Charts,
	}
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Paths.Ensure(); err != nil {
		return fmt.Errorf("artifact directories: %w", err)
	}
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Archive.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("archive start failed: %w", err)
	}

	i.Lifecycle.AddCheck("database", i.Database)
	i.Lifecycle.AddCheck("model", i.Model.Gate())

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()
		if err := i.Model.Close(); err != nil {
			i.Logger.Error("model close failed", "error", err)
		}
	})
	return nil
}
