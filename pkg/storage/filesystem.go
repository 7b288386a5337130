package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists named blobs as files under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save replaces the named file atomically: the bytes land in a temp file in
// the same directory which is then renamed over the target.
func (s *LocalStorage) Save(name string, data []byte) error {
	path := s.resolve(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// Read returns the file contents. A missing file yields an error matching
// fs.ErrNotExist.
func (s *LocalStorage) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(name string) error {
	if err := os.Remove(s.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Path exposes the resolved path (useful for logs and the admin CLI).
func (s *LocalStorage) Path(name string) string {
	return s.resolve(name)
}

// resolve keeps names inside baseDir; separators in a key are flattened.
func (s *LocalStorage) resolve(name string) string {
	clean := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
	return filepath.Join(s.baseDir, clean)
}
