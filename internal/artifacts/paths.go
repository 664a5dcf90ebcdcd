// Package artifacts names, places, and persists the files produced per request:
// the stored upload and its probability chart.
package artifacts

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// Paths locates the upload and chart directories and the URL prefixes they are served under.
type Paths struct {
	UploadsDir string
	ChartsDir  string
	UploadsURL string
	ChartsURL  string
}

// Ensure creates both directories if missing. It is idempotent.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.UploadsDir, p.ChartsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// UploadPath returns the filesystem path of a stored image.
func (p Paths) UploadPath(name string) string {
	return filepath.Join(p.UploadsDir, name)
}

// ChartPath returns the filesystem path of a chart.
func (p Paths) ChartPath(name string) string {
	return filepath.Join(p.ChartsDir, name)
}

// UploadURL returns the URL a stored image is served at.
func (p Paths) UploadURL(name string) string {
	return path.Join(p.UploadsURL, name)
}

// ChartURL returns the URL a chart is served at.
func (p Paths) ChartURL(name string) string {
	return path.Join(p.ChartsURL, name)
}
