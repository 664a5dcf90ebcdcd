package database

import "errors"

var (
	// ErrNotReady is returned by callers that need the history store before
	// the startup ping and migrations have completed.
	ErrNotReady = errors.New("database not ready")
	// ErrUnsupportedDriver rejects drivers other than sqlite and postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
