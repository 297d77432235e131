package scene

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// ErrNotFound is returned by file systems for missing files.
var ErrNotFound = errors.New("file not found")

// FileSystem is the file-access shim handed to importers.
type FileSystem interface {
	Open(name string) (io.ReadCloser, error)
}

// Importer turns a model file into a Scene.
type Importer interface {
	Import(path string, fsys FileSystem) (*Scene, error)
}

// ImporterFunc adapts a function to the Importer interface.
type ImporterFunc func(path string, fsys FileSystem) (*Scene, error)

// Import calls f.
func (f ImporterFunc) Import(path string, fsys FileSystem) (*Scene, error) {
	return f(path, fsys)
}

// OSFileSystem opens files from the host file system.
type OSFileSystem struct{}

// Open opens name for reading.
func (OSFileSystem) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return f, nil
}

// ReadFile reads a whole file through fsys.
func ReadFile(fsys FileSystem, name string) ([]byte, error) {
	rc, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Dir returns the prefix of p up to and including the last path separator,
// or "" when p has none. Both '/' and '\' count as separators.
func Dir(p string) string {
	i := strings.LastIndexAny(p, `/\`)
	if i < 0 {
		return ""
	}
	return p[:i+1]
}

// Join resolves a reference relative to a directory returned by Dir.
func Join(dir, ref string) string {
	ref = strings.ReplaceAll(ref, `\`, "/")
	if dir == "" {
		return path.Clean(ref)
	}
	return path.Join(strings.ReplaceAll(dir, `\`, "/"), ref)
}
