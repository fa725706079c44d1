package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dsimport/internal/dataset"
)

// DirectoryNotFoundError reports a dataset root that does not exist or is not
// a directory. Unlike per-dataset failures it is fatal to the whole run.
type DirectoryNotFoundError struct {
	Path string
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("data directory not found: %s", e.Path)
}

// Candidate is one discovered dataset file, not yet read.
type Candidate struct {
	Name   string
	Path   string
	Format dataset.Format
}

// Discover walks the root recursively and returns every regular file as a
// candidate, in lexical walk order. Files with unrecognized extensions are
// included; they fail later at the reader stage and are skipped there.
func Discover(root string) ([]Candidate, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &DirectoryNotFoundError{Path: root}
	}

	var out []Candidate
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		out = append(out, Candidate{
			Name:   dataset.NameForPath(path),
			Path:   path,
			Format: dataset.FormatForPath(path),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
