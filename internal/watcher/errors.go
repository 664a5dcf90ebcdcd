package watcher

import "errors"

var (
	// ErrLocked indicates another watcher holds the lock file.
	ErrLocked = errors.New("another watcher is already running")
	// ErrModelMissing indicates a single check found no model artifact.
	ErrModelMissing = errors.New("model artifact not found")
	// ErrNoCommand indicates the launch command is empty.
	ErrNoCommand = errors.New("launch command is empty")
)
