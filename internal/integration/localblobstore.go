package integration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

// LocalBlobStore serves a mirrored bucket from a directory. Object names
// are slash-separated paths relative to the root.
type LocalBlobStore struct {
	root string
}

var _ core.BlobStore = (*LocalBlobStore)(nil)

// NewLocalBlobStore creates a store rooted at dir.
func NewLocalBlobStore(dir string) *LocalBlobStore {
	return &LocalBlobStore{root: dir}
}

func (s *LocalBlobStore) osPath(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Fetch reads the object at name.
func (s *LocalBlobStore) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.osPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", name, core.ErrNotFound)
		}
		return nil, fmt.Errorf("reading object %s: %w", name, err)
	}
	return data, nil
}

// ListDirectories returns the immediate subdirectories of prefix as
// prefixes ending in "/". A missing prefix has no directories.
func (s *LocalBlobStore) ListDirectories(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.osPath(prefix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing directories under %s: %w", prefix, err)
	}
	base := prefix
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, base+e.Name()+"/")
		}
	}
	return dirs, nil
}

// ListFilteredFiles walks prefix and returns the files whose path relative
// to prefix matches pattern, sorted by name.
func (s *LocalBlobStore) ListFilteredFiles(_ context.Context, prefix, pattern string) ([]core.BlobFile, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}

	start := s.osPath(prefix)
	var files []core.BlobFile
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) || !g.Match(strings.TrimPrefix(name, prefix)) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, core.BlobFile{Name: name, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path.Join(prefix, pattern), err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
