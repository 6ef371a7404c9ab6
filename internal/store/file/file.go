package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"scanpos/internal/store"
)

// Store persists each blob as <dir>/<key>.json, written via a temp file and
// rename so a single Set never leaves a torn value behind. SetMulti stages all
// temp files first and only then renames them, which narrows (but does not
// close) the multi-key inconsistency window on this backend; the postgres
// store is the backend with a real transactional commit.
type Store struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("file store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("file store: read %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(path, value)
}

func (s *Store) SetMulti(_ context.Context, values map[string][]byte) error {
	staged := make(map[string]string, len(values))
	for key := range values {
		path, err := s.path(key)
		if err != nil {
			return err
		}
		staged[key] = path
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	temps := make(map[string]string, len(values))
	for key, path := range staged {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, values[key], 0o644); err != nil {
			for _, t := range temps {
				_ = os.Remove(t)
			}
			return fmt.Errorf("file store: stage %s: %w", key, err)
		}
		temps[path] = tmp
	}
	for path, tmp := range temps {
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("file store: commit %s: %w", path, err)
		}
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func writeAtomic(path string, value []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
