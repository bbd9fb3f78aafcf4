package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"agenda/internal/store"
)

const (
	fileSuffix      = ".json"
	tmpSuffix       = ".tmp"
	backupSuffix    = ".bak"
	filePermissions = 0o600
	dirPermissions  = 0o755
)

// Store keeps one JSON file per key in a directory. Writes go to a
// temporary file first and are renamed into place; the previous version is
// kept as a .bak file.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key+fileSuffix), nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp := p + tmpSuffix
	if err := os.WriteFile(tmp, value, filePermissions); err != nil {
		return err
	}

	if _, err := os.Stat(p); err == nil {
		if err := copyFile(p, p+backupSuffix); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("backup %s: %w", key, err)
		}
	}

	return os.Rename(tmp, p)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, filePermissions)
}
