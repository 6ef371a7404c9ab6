// Package share is the print/share sink: it renders HTML documents to files
// under a spool directory and hands back a shareable file handle.
package share

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Sink struct {
	dir string
}

type FileHandle struct {
	Name string
	Path string
	URI  string
}

func NewSink(dir string) (*Sink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("share sink: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("share sink: create %s: %w", dir, err)
	}
	return &Sink{dir: dir}, nil
}

// RenderToFile writes the HTML document to the spool directory under a fresh
// name. The prefix names the document kind (receipt, report).
func (s *Sink) RenderToFile(prefix string, html string) (FileHandle, error) {
	name := fmt.Sprintf("%s-%s.html", prefix, uuid.NewString())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return FileHandle{}, fmt.Errorf("share sink: write %s: %w", name, err)
	}
	return FileHandle{Name: name, Path: path, URI: "file://" + path}, nil
}
