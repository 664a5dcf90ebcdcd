// Package config loads the Cerebra configuration from an optional TOML file,
// an optional per-environment overlay, and CEREBRA_* environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/cerebra/pkg/database"
	"github.com/JaimeStill/cerebra/pkg/logging"
	"github.com/JaimeStill/cerebra/pkg/pagination"
	"github.com/JaimeStill/cerebra/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCerebraEnv     = "CEREBRA_ENV"
	EnvCerebraConfig  = "CEREBRA_CONFIG"
	EnvCerebraVersion = "CEREBRA_VERSION"
)

var databaseEnv = &database.Env{
	Driver:          "CEREBRA_DB_DRIVER",
	Path:            "CEREBRA_DB_PATH",
	Host:            "CEREBRA_DB_HOST",
	Port:            "CEREBRA_DB_PORT",
	Name:            "CEREBRA_DB_NAME",
	User:            "CEREBRA_DB_USER",
	Password:        "CEREBRA_DB_PASSWORD",
	SSLMode:         "CEREBRA_DB_SSL_MODE",
	MaxOpenConns:    "CEREBRA_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CEREBRA_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CEREBRA_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CEREBRA_DB_CONN_TIMEOUT",
	AutoMigrate:     "CEREBRA_DB_AUTO_MIGRATE",
}

var archiveEnv = &storage.Env{
	Enabled:          "CEREBRA_ARCHIVE_ENABLED",
	Provider:         "CEREBRA_ARCHIVE_PROVIDER",
	ContainerName:    "CEREBRA_ARCHIVE_CONTAINER_NAME",
	ConnectionString: "CEREBRA_ARCHIVE_CONNECTION_STRING",
	AccountURL:       "CEREBRA_ARCHIVE_ACCOUNT_URL",
	Root:             "CEREBRA_ARCHIVE_ROOT",
}

var loggingEnv = &logging.Env{
	Level:  "CEREBRA_LOG_LEVEL",
	Format: "CEREBRA_LOG_FORMAT",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "CEREBRA_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "CEREBRA_PAGINATION_MAX_PAGE_SIZE",
}

// Config is the root configuration for Cerebra.
type Config struct {
	Server     ServerConfig      `toml:"server"`
	Web        WebConfig         `toml:"web"`
	Paths      PathsConfig       `toml:"paths"`
	Model      ModelConfig       `toml:"model"`
	Database   database.Config   `toml:"database"`
	Archive    storage.Config    `toml:"archive"`
	Logging    logging.Config    `toml:"logging"`
	Pagination pagination.Config `toml:"pagination"`
	Watcher    WatcherConfig     `toml:"watcher"`
	Version    string            `toml:"version"`
}

// Env returns the CEREBRA_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCerebraEnv); env != "" {
		return env
	}
	return "local"
}

// ModelPath returns the gate artifact path resolved against the project root.
func (c *Config) ModelPath() string {
	return c.Paths.Resolve(c.Model.Path)
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config file exists, defaults and environment
// variables provide all configuration. CEREBRA_CONFIG names an alternate base file.
func Load() (*Config, error) {
	cfg := &Config{}

	base := BaseConfigFile
	if v := os.Getenv(EnvCerebraConfig); v != "" {
		base = v
	}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Web.Merge(&overlay.Web)
	c.Paths.Merge(&overlay.Paths)
	c.Model.Merge(&overlay.Model)
	c.Database.Merge(&overlay.Database)
	c.Archive.Merge(&overlay.Archive)
	c.Logging.Merge(&overlay.Logging)
	c.Pagination.Merge(&overlay.Pagination)
	c.Watcher.Merge(&overlay.Watcher)
}

// Finalize applies defaults, environment overrides, and validation to every section.
func (c *Config) Finalize() error {
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if v := os.Getenv(EnvCerebraVersion); v != "" {
		c.Version = v
	}

	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Web.Finalize(); err != nil {
		return fmt.Errorf("web: %w", err)
	}
	if err := c.Paths.Finalize(); err != nil {
		return fmt.Errorf("paths: %w", err)
	}
	if err := c.Model.Finalize(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Archive.Finalize(archiveEnv); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if err := c.Logging.Finalize(loggingEnv); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.Watcher.Finalize(); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvCerebraEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
