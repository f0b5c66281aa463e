package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m3rciful/leadbot/core/logger"
)

// FileStore keeps the record in a JSON file. Writes use temp file + rename.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore for path, creating missing parent directories with 0700.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("tokenstore: file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("tokenstore: create dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Load reads the record. A missing or malformed file yields ok=false and no error.
func (f *FileStore) Load(ctx context.Context) (Credentials, bool, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, false, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("tokenstore: read %s: %w", f.path, err)
	}
	creds, ok := Unmarshal(data)
	if !ok {
		logger.Warn(ctx, logger.ComponentStore, "credentials.invalid",
			slog.String("backend", "file"),
			slog.String("path", f.path),
		)
	}
	return creds, ok, nil
}

// Save atomically replaces the file with 0600 permissions.
func (f *FileStore) Save(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(creds)
	if err != nil {
		return fmt.Errorf("tokenstore: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenstore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	defer func() { _ = tmp.Close() }()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("tokenstore: write temp: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("tokenstore: chmod temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("tokenstore: replace %s: %w", f.path, err)
	}
	return nil
}
