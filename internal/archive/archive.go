// Package archive mirrors request artifacts to long-term object storage once
// a prediction completes, and reads them back when local copies are gone.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/cerebra/pkg/lifecycle"
	"github.com/JaimeStill/cerebra/pkg/storage"
)

// Key prefixes in the archive.
const (
	UploadsPrefix = "uploads"
	ChartsPrefix  = "predictions"
)

const mirrorTimeout = 2 * time.Minute

// File is one local artifact to mirror.
type File struct {
	Key         string
	Path        string
	ContentType string
}

// UploadKey returns the archive key of a stored image.
func UploadKey(name string) string {
	return path.Join(UploadsPrefix, name)
}

// ChartKey returns the archive key of a chart.
func ChartKey(name string) string {
	return path.Join(ChartsPrefix, name)
}

// Archive copies artifacts to a storage.System. A nil Archive, or one built
// without a store, is disabled and every operation is a no-op.
type Archive struct {
	store  storage.System
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	pending sync.WaitGroup
}

// New creates an Archive over store. store may be nil.
func New(store storage.System, logger *slog.Logger) *Archive {
	return &Archive{
		store:  store,
		logger: logger.With("system", "archive"),
		ctx:    context.Background(),
	}
}

// Enabled reports whether a store is configured.
func (a *Archive) Enabled() bool {
	return a != nil && a.store != nil
}

// Start binds background mirroring to the coordinator's context and drains
// in-flight copies on shutdown.
func (a *Archive) Start(lc *lifecycle.Coordinator) error {
	if !a.Enabled() {
		return nil
	}
	if err := a.store.Start(lc); err != nil {
		return err
	}

	a.mu.Lock()
	a.ctx = lc.Context()
	a.mu.Unlock()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		a.pending.Wait()
		a.logger.Info("archive drained")
	})
	return nil
}

// Mirror uploads files concurrently and returns the first failure.
func (a *Archive) Mirror(ctx context.Context, files ...File) error {
	if !a.Enabled() || len(files) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			return a.upload(gctx, f)
		})
	}
	return g.Wait()
}

// Go mirrors files in the background. Failures are logged.
func (a *Archive) Go(files ...File) {
	if !a.Enabled() || len(files) == 0 {
		return
	}

	a.mu.Lock()
	parent := a.ctx
	a.mu.Unlock()

	a.pending.Go(func() {
		// Shutdown cancels parent; copies already underway are allowed to finish.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), mirrorTimeout)
		defer cancel()

		if err := a.Mirror(ctx, files...); err != nil {
			a.logger.Error("archive mirror failed", "error", err)
			return
		}
		a.logger.Debug("artifacts archived", "count", len(files))
	})
}

// Wait blocks until background mirroring finishes.
func (a *Archive) Wait() {
	if a != nil {
		a.pending.Wait()
	}
}

// Open reads an archived object. It returns storage.ErrNotFound when the
// archive is disabled or the key is absent.
func (a *Archive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !a.Enabled() {
		return nil, storage.ErrNotFound
	}
	return a.store.Download(ctx, key)
}

// Artifact names carry a unique token, so an existing key is an earlier copy.
func (a *Archive) upload(ctx context.Context, f File) error {
	exists, err := a.store.Exists(ctx, f.Key)
	if err != nil {
		return fmt.Errorf("archive %s: %w", f.Key, err)
	}
	if exists {
		a.logger.Debug("already archived", "key", f.Key)
		return nil
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("archive %s: %w", f.Key, err)
	}
	defer file.Close()

	if err := a.store.Upload(ctx, f.Key, file, f.ContentType); err != nil {
		return fmt.Errorf("archive %s: %w", f.Key, err)
	}
	return nil
}
