// Package watcher waits for the model artifact to appear and then launches
// the server as an independent process.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
)

// DefaultInterval is the poll period used when Options.Interval is not positive.
const DefaultInterval = 10 * time.Second

// Gate reports whether the model artifact is present.
type Gate interface {
	Ready() bool
	Path() string
}

// LaunchFunc starts command detached from the watcher and returns its pid.
type LaunchFunc func(command []string) (int, error)

// Options configures a Watcher.
type Options struct {
	Gate     Gate
	Interval time.Duration
	Command  []string
	// LockFile, when set, is held for the duration of Run so that only one
	// watcher polls per deployment.
	LockFile string
	// Launch defaults to Launch.
	Launch LaunchFunc
}

// Watcher polls the gate and launches the server once.
type Watcher struct {
	gate     Gate
	interval time.Duration
	command  []string
	lockFile string
	launch   LaunchFunc
	logger   *slog.Logger
}

// New creates a Watcher.
func New(opts Options, logger *slog.Logger) *Watcher {
	launch := opts.Launch
	if launch == nil {
		launch = Launch
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		gate:     opts.Gate,
		interval: interval,
		command:  slices.Clone(opts.Command),
		lockFile: opts.LockFile,
		launch:   launch,
		logger:   logger.With("system", "watcher"),
	}
}

// Interval returns the poll period.
func (w *Watcher) Interval() time.Duration {
	return w.interval
}

// Run polls every interval until the artifact exists, launches the server,
// and returns its pid. There is no backoff and no attempt limit; only ctx
// ends the wait.
func (w *Watcher) Run(ctx context.Context) (int, error) {
	unlock, err := w.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	w.logger.Info("waiting for model", "path", w.gate.Path(), "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for !w.gate.Ready() {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
			w.logger.Debug("model not found", "path", w.gate.Path())
		}
	}

	return w.start()
}

// Once checks the artifact a single time and launches the server if it exists.
func (w *Watcher) Once() (int, error) {
	unlock, err := w.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if !w.gate.Ready() {
		return 0, fmt.Errorf("%w: %s", ErrModelMissing, w.gate.Path())
	}
	return w.start()
}

func (w *Watcher) start() (int, error) {
	w.logger.Info("model found, starting server", "command", w.command)

	pid, err := w.launch(w.command)
	if err != nil {
		return 0, fmt.Errorf("launch server: %w", err)
	}

	w.logger.Info("server started", "pid", pid)
	return pid, nil
}

func (w *Watcher) lock() (func(), error) {
	if w.lockFile == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(w.lockFile), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(w.lockFile)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, w.lockFile)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			w.logger.Warn("failed to release watcher lock", "error", err)
		}
	}, nil
}
