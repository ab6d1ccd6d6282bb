package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Scan walks root and returns the absolute paths of every file named
// unitName, skipping directories whose base name is in exclude.
// Results are sorted.
func Scan(root, unitName string, exclude []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}

	var units []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			// Unreadable subdirectories are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != absRoot && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == unitName {
			units = append(units, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Strings(units)
	return units, nil
}

// Dirs returns every directory under root (inclusive), honouring exclude.
// Used to register directories with a file watcher.
func Dirs(root string, exclude []string) ([]string, error) {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}

	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skip[d.Name()] {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return dirs, nil
}
