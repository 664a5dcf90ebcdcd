package config

import (
	"os"
	"path/filepath"
)

const (
	EnvPathsRoot    = "CEREBRA_PATHS_ROOT"
	EnvPathsStatic  = "CEREBRA_PATHS_STATIC"
	EnvPathsUploads = "CEREBRA_PATHS_UPLOADS"
	EnvPathsCharts  = "CEREBRA_PATHS_CHARTS"
)

// PathsConfig locates the artifact directories. Static is relative to Root;
// Uploads and Charts are relative to Static and double as their URL segments.
type PathsConfig struct {
	Root    string `toml:"root"`
	Static  string `toml:"static"`
	Uploads string `toml:"uploads"`
	Charts  string `toml:"charts"`
}

// StaticDir returns the directory served under /static.
func (c *PathsConfig) StaticDir() string {
	return filepath.Join(c.Root, c.Static)
}

// UploadsDir returns the directory that holds stored uploads.
func (c *PathsConfig) UploadsDir() string {
	return filepath.Join(c.StaticDir(), c.Uploads)
}

// ChartsDir returns the directory that holds rendered charts.
func (c *PathsConfig) ChartsDir() string {
	return filepath.Join(c.StaticDir(), c.Charts)
}

// Resolve returns path unchanged when absolute, otherwise joined to Root.
func (c *PathsConfig) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

// Finalize applies defaults and environment variable overrides.
func (c *PathsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *PathsConfig) Merge(overlay *PathsConfig) {
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
	if overlay.Static != "" {
		c.Static = overlay.Static
	}
	if overlay.Uploads != "" {
		c.Uploads = overlay.Uploads
	}
	if overlay.Charts != "" {
		c.Charts = overlay.Charts
	}
}

func (c *PathsConfig) loadDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if c.Static == "" {
		c.Static = "static"
	}
	if c.Uploads == "" {
		c.Uploads = "uploads"
	}
	if c.Charts == "" {
		c.Charts = "predictions"
	}
}

func (c *PathsConfig) loadEnv() {
	if v := os.Getenv(EnvPathsRoot); v != "" {
		c.Root = v
	}
	if v := os.Getenv(EnvPathsStatic); v != "" {
		c.Static = v
	}
	if v := os.Getenv(EnvPathsUploads); v != "" {
		c.Uploads = v
	}
	if v := os.Getenv(EnvPathsCharts); v != "" {
		c.Charts = v
	}
}
