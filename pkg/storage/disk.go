package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrOutsideRoot is returned for names that would resolve outside the store directory.
var ErrOutsideRoot = errors.New("path escapes storage root")

// DiskStore keeps rendered report files below one directory. Names are slash separated
// and relative to that directory.
type DiskStore struct {
	root string
	now  func() time.Time
}

// NewDiskStore creates root when missing. An empty root means ./exports.
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DiskStore{root: root, now: time.Now}, nil
}

// Save writes data under name through a temporary file and a rename, so readers never see
// a partial file.
func (s *DiskStore) Save(name string, data []byte) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".part-*")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish %s: %w", name, err)
	}
	return filepath.ToSlash(name), nil
}

// Open returns the stored file. A missing file satisfies errors.Is(err, os.ErrNotExist).
func (s *DiskStore) Open(name string) (*os.File, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return file, nil
}

// Delete removes name; a missing file is not an error.
func (s *DiskStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Prune deletes files not modified within maxAge and returns their names.
func (s *DiskStore) Prune(maxAge time.Duration) ([]string, error) {
	cutoff := s.now().Add(-maxAge)
	var removed []string
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil || entry.IsDir() {
			return walkErr
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if rel, err := filepath.Rel(s.root, path); err == nil {
			removed = append(removed, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("prune %s: %w", s.root, err)
	}
	return removed, nil
}

func (s *DiskStore) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", name, ErrOutsideRoot)
	}
	return filepath.Join(s.root, clean), nil
}
