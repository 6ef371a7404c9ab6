// Package images stores product photos as files, one per barcode. The stored
// path is recorded on the inventory record as its imageUri.
package images

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("image store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("image store: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the image for a barcode, replacing any previous one, and
// returns the stored file path.
func (s *Store) Save(barcode string, data []byte) (string, error) {
	name := fmt.Sprintf("product_%s.jpg", sanitize(barcode))
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("image store: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("image store: commit %s: %w", name, err)
	}
	return path, nil
}

// Delete removes a stored image. A missing file is not an error; callers
// treat deletion as best effort anyway.
func (s *Store) Delete(imageRef string) error {
	if strings.TrimSpace(imageRef) == "" {
		return nil
	}
	if filepath.Dir(imageRef) != filepath.Clean(s.dir) {
		return fmt.Errorf("image store: %s is outside the image directory", imageRef)
	}
	err := os.Remove(imageRef)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func sanitize(barcode string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, barcode)
}
