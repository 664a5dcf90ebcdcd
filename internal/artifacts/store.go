package artifacts

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const maxNameAttempts = 8

// StoredImage is an upload persisted under its token-derived name.
type StoredImage struct {
	Path  string
	Name  string
	Token Token
	Ext   string
}

// Store persists uploads into the uploads directory. Stored files are never
// modified or removed once written.
type Store struct {
	paths  Paths
	namer  *Namer
	logger *slog.Logger
}

// NewStore creates a Store writing beneath paths.UploadsDir with names from namer.
func NewStore(paths Paths, namer *Namer, logger *slog.Logger) *Store {
	return &Store{
		paths:  paths,
		namer:  namer,
		logger: logger.With("system", "artifacts"),
	}
}

// Paths returns the directory layout the store writes into.
func (s *Store) Paths() Paths {
	return s.paths
}

// Save writes r to a new file named upload_<token>.<ext>. The file is created
// exclusively; if another process already holds the name, the next token is tried.
func (s *Store) Save(r io.Reader, ext string) (StoredImage, error) {
	if err := s.paths.Ensure(); err != nil {
		return StoredImage{}, err
	}

	for range maxNameAttempts {
		token := s.namer.Next()
		name := token.ImageName(ext)
		path := s.paths.UploadPath(name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			s.logger.Warn("upload name collision", "name", name)
			continue
		}
		if err != nil {
			return StoredImage{}, fmt.Errorf("create upload: %w", err)
		}

		if err := write(f, r); err != nil {
			os.Remove(path)
			return StoredImage{}, fmt.Errorf("write upload: %w", err)
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}

		return StoredImage{Path: abs, Name: name, Token: token, Ext: ext}, nil
	}

	return StoredImage{}, ErrNameExhausted
}

func write(f *os.File, r io.Reader) error {
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
