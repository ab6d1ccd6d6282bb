// Package workspace is the file boundary of transunit: reading, writing and
// discovering translation unit files.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FS is the file access transunit needs.
type FS interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}

// ---------------------------------------------------------------------------
// OS
// ---------------------------------------------------------------------------

// OS implements FS on the local file system.
type OS struct{}

// ReadFile implements FS.
func (OS) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// WriteFile implements FS. The file is written to a temporary sibling and
// renamed into place so a failed write never leaves a truncated unit.
func (OS) WriteFile(_ context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Exists implements FS.
func (OS) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", path, err)
}

// ---------------------------------------------------------------------------
// In-memory
// ---------------------------------------------------------------------------

// MemFS is an in-memory FS, safe for concurrent use.
type MemFS struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes map[string]int
	// FailWrites makes WriteFile fail for the listed paths.
	FailWrites map[string]error
}

// NewMemFS returns a MemFS seeded with files.
func NewMemFS(files map[string]string) *MemFS {
	m := &MemFS{
		files:      make(map[string][]byte),
		writes:     make(map[string]int),
		FailWrites: make(map[string]error),
	}
	for p, s := range files {
		m.files[filepath.Clean(p)] = []byte(s)
	}
	return m
}

// ReadFile implements FS.
func (m *MemFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", path, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// WriteFile implements FS.
func (m *MemFS) WriteFile(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.FailWrites[path]; err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	m.files[path] = append([]byte(nil), data...)
	m.writes[path]++
	return nil
}

// Exists implements FS.
func (m *MemFS) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[filepath.Clean(path)]
	return ok, nil
}

// Get returns the content of path as a string ("" if missing).
func (m *MemFS) Get(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.files[filepath.Clean(path)])
}

// Writes returns how many times path was written.
func (m *MemFS) Writes(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[filepath.Clean(path)]
}

// Paths returns all stored paths, sorted.
func (m *MemFS) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Remove deletes path.
func (m *MemFS) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, filepath.Clean(path))
}
