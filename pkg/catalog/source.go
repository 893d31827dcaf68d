package catalog

import (
	"context"
	"path/filepath"
)

// Source fetches a fresh snapshot of the catalog.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// FileSource reads the catalog from a file on disk.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source for the given catalog file.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch reads and decodes the file.
func (fs *FileSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := ReadFile(fs.Path)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(filepath.Base(fs.Path), entries), nil
}

// StaticSource always returns the same entries. Useful for tests and for
// running without a catalog file.
type StaticSource struct {
	Name    string
	Entries []*Entry
}

// Fetch builds a snapshot of the static entries.
func (ss *StaticSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := ss.Name
	if name == "" {
		name = "static"
	}
	return NewSnapshot(name, ss.Entries), nil
}
