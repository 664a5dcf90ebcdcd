package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	EnvWatcherInterval = "CEREBRA_WATCHER_INTERVAL"
	EnvWatcherCommand  = "CEREBRA_WATCHER_COMMAND"
	EnvWatcherLockFile = "CEREBRA_WATCHER_LOCK_FILE"
)

// WatcherConfig controls the startup watcher that launches the server once the model exists.
type WatcherConfig struct {
	Interval string   `toml:"interval"`
	Command  []string `toml:"command"`
	LockFile string   `toml:"lock_file"`
}

// IntervalDuration returns Interval as a time.Duration.
func (c *WatcherConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WatcherConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WatcherConfig) Merge(overlay *WatcherConfig) {
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if len(overlay.Command) > 0 {
		c.Command = overlay.Command
	}
	if overlay.LockFile != "" {
		c.LockFile = overlay.LockFile
	}
}

func (c *WatcherConfig) loadDefaults() {
	if c.Interval == "" {
		c.Interval = "10s"
	}
	if len(c.Command) == 0 {
		c.Command = []string{"cerebra-server"}
	}
	if c.LockFile == "" {
		c.LockFile = "data/watcher.lock"
	}
}

func (c *WatcherConfig) loadEnv() {
	if v := os.Getenv(EnvWatcherInterval); v != "" {
		c.Interval = v
	}
	if v := os.Getenv(EnvWatcherCommand); v != "" {
		c.Command = strings.Fields(v)
	}
	if v := os.Getenv(EnvWatcherLockFile); v != "" {
		c.LockFile = v
	}
}

func (c *WatcherConfig) validate() error {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if len(c.Command) == 0 {
		return fmt.Errorf("command required")
	}
	return nil
}
