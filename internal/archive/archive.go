// Package archive bundles generated flight plans into a single zip and hands it to the host.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"route2lnm/internal/models"

	"github.com/klauspost/compress/zip"
)

const (
	planExtension    = ".lnmpln"
	archiveExtension = ".zip"
	ContentType      = "application/zip"
)

// ExportError reports that an archive could not be built or delivered
type ExportError struct {
	Name string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("failed to export archive: %v", e.Err)
	}
	return fmt.Sprintf("failed to export archive %q: %v", e.Name, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// DocumentName returns the file name of leg i of n.
// first and last are the canonical route endpoints, from and to the leg's display identifiers.
func DocumentName(first, last string, i, n int, from, to string) string {
	return fmt.Sprintf("%s-%s %d_%d - %s to %s%s", first, last, i, n, from, to, planExtension)
}

// ArchiveName returns the file name of the archive for a route
func ArchiveName(first, last string) string {
	return fmt.Sprintf("Route %s to %s%s", first, last, archiveExtension)
}

// Build writes every document into one deflate-compressed zip, in order
func Build(docs []models.Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, &ExportError{Err: fmt.Errorf("no documents to archive")}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc.Name == "" {
			return nil, &ExportError{Err: fmt.Errorf("document has no name")}
		}
		if _, dup := seen[doc.Name]; dup {
			return nil, &ExportError{Err: fmt.Errorf("duplicate document name %q", doc.Name)}
		}
		seen[doc.Name] = struct{}{}

		header := &zip.FileHeader{
			Name:     doc.Name,
			Method:   zip.Deflate,
			Modified: doc.Modified,
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, &ExportError{Err: fmt.Errorf("failed to add %s: %w", doc.Name, err)}
		}
		if _, err := w.Write(doc.Content); err != nil {
			return nil, &ExportError{Err: fmt.Errorf("failed to write %s: %w", doc.Name, err)}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &ExportError{Err: fmt.Errorf("failed to finish archive: %w", err)}
	}
	return buf.Bytes(), nil
}

// Entry is one file read back from an archive
type Entry struct {
	Name     string
	Modified time.Time
	Content  []byte
}

// Read lists the files of an archive in order
func Read(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		var content bytes.Buffer
		_, err = content.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		entries = append(entries, Entry{Name: f.Name, Modified: f.Modified, Content: content.Bytes()})
	}
	return entries, nil
}

// Sink delivers a finished archive to the host environment
type Sink interface {
	Persist(ctx context.Context, name string, data []byte) error
}

// DirectorySink writes archives into a directory
type DirectorySink struct {
	dir string
}

// NewDirectorySink creates a DirectorySink, creating dir when it does not exist
func NewDirectorySink(dir string) (*DirectorySink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirectorySink{dir: dir}, nil
}

// Dir returns the output directory
func (s *DirectorySink) Dir() string {
	return s.dir
}

// Path returns where an archive with the given name is written
func (s *DirectorySink) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Persist writes through a temporary file and renames it into place,
// so a partially written archive is never visible under its final name.
func (s *DirectorySink) Persist(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &ExportError{Name: name, Err: err}
	}
	if name == "" || filepath.Base(name) != name {
		return &ExportError{Name: name, Err: fmt.Errorf("invalid archive name")}
	}

	tmp, err := os.CreateTemp(s.dir, ".route2lnm-*.tmp")
	if err != nil {
		return &ExportError{Name: name, Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &ExportError{Name: name, Err: fmt.Errorf("failed to write temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &ExportError{Name: name, Err: fmt.Errorf("failed to close temp file: %w", err)}
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return &ExportError{Name: name, Err: fmt.Errorf("failed to move archive into place: %w", err)}
	}
	return nil
}

// MemorySink keeps archives in memory
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
}

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) Persist(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &ExportError{Name: name, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[name]; !ok {
		s.order = append(s.order, name)
	}
	s.files[name] = append([]byte(nil), data...)
	return nil
}

// Get returns the archive stored under name
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// Names returns the stored archive names in the order they were first persisted
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
