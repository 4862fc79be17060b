package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileStore keeps one JSON document per key under a data directory.
// Writes go through a temp file plus rename so a crash never leaves a
// half-written record behind.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates the data directory if needed and returns a store
// rooted there. Pass afero.NewMemMapFs() in tests.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get returns the stored value for key, or false when no file exists.
func (f *FileStore) Get(key string) ([]byte, bool) {
	data, err := afero.ReadFile(f.fs, f.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set writes value under key atomically.
func (f *FileStore) Set(key string, value []byte) error {
	tmp := f.path(key) + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, value, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.fs.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// Remove deletes the file backing key; an absent key is a no-op.
func (f *FileStore) Remove(key string) error {
	if err := f.fs.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys starting with prefix.
func (f *FileStore) Keys(prefix string) ([]string, error) {
	entries, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		return nil, fmt.Errorf("list store directory: %w", err)
	}
	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close is a no-op for the file backend.
func (f *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
