// Package reports assembles a PDF per prediction with the stored scan on the
// first page and its probability chart on the second.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	_ "golang.org/x/image/bmp"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/cerebra/internal/archive"
	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/internal/predictions"
	"github.com/JaimeStill/cerebra/pkg/storage"
)

// Generator builds reports from recorded predictions.
type Generator struct {
	paths   artifacts.Paths
	history predictions.System
	archive *archive.Archive
	logger  *slog.Logger
}

// New creates a Generator. arc may be nil when no archive is configured.
func New(
	paths artifacts.Paths,
	history predictions.System,
	arc *archive.Archive,
	logger *slog.Logger,
) *Generator {
	api.DisableConfigDir()
	return &Generator{
		paths:   paths,
		history: history,
		archive: arc,
		logger:  logger.With("system", "reports"),
	}
}

// Handler returns the HTTP handler for report downloads.
func (g *Generator) Handler() *Handler {
	return NewHandler(g, g.logger)
}

type source struct {
	path string
	key  string
}

// Write renders the report for token to w.
func (g *Generator) Write(ctx context.Context, w io.Writer, token artifacts.Token) error {
	p, err := g.history.FindByToken(ctx, string(token))
	if err != nil {
		return err
	}
	if p.Status != predictions.StatusCompleted || p.ChartName == nil {
		return fmt.Errorf("%w: %s", ErrIncomplete, token)
	}

	sources := []source{
		{path: g.paths.UploadPath(p.ImageName), key: archive.UploadKey(p.ImageName)},
		{path: g.paths.ChartPath(*p.ChartName), key: archive.ChartKey(*p.ChartName)},
	}

	pages := make([]io.Reader, len(sources))

	eg, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		eg.Go(func() error {
			data, err := g.pagePNG(gctx, src)
			if err != nil {
				return err
			}
			pages[i] = bytes.NewReader(data)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if err := api.ImportImages(nil, w, pages, pdfcpu.DefaultImportConfig(), nil); err != nil {
		return fmt.Errorf("assemble report: %w", err)
	}

	g.logger.Info("report generated", "token", token)
	return nil
}

// pagePNG reads src, preferring the local file, and re-encodes it as PNG so
// every upload format can be embedded.
func (g *Generator) pagePNG(ctx context.Context, src source) ([]byte, error) {
	rc, err := g.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src.key, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode %s: %w", src.key, err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) open(ctx context.Context, src source) (io.ReadCloser, error) {
	f, err := os.Open(src.path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", src.path, err)
	}

	rc, err := g.archive.Open(ctx, src.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, src.key)
	}
	if err != nil {
		return nil, fmt.Errorf("open archived %s: %w", src.key, err)
	}

	g.logger.Debug("report source read from archive", "key", src.key)
	return rc, nil
}
