package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// removePath deletes one file or empty directory during eraseAll.
var removePath = os.Remove

// walkFiles calls fn for every non-directory entry below root. Symbolic
// links are reported as entries and never followed, so link cycles cannot
// loop. Unreadable directories are skipped and their errors joined into the
// result; a missing root is an empty tree.
func walkFiles(root string, fn func(path string, d fs.DirEntry)) error {
	var errs []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			errs = append(errs, err)
			return nil
		}
		if !d.IsDir() {
			fn(path, d)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// countFiles returns the number of entries below root.
func countFiles(root string) (int, error) {
	n := 0
	err := walkFiles(root, func(string, fs.DirEntry) {
		n++
	})
	return n, err
}

// collectKeys returns the sanitized key of every entry below root.
func collectKeys(root, compExt string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := walkFiles(root, func(_ string, d fs.DirEntry) {
		keys[keyFromName(d.Name(), compExt)] = struct{}{}
	})
	return keys, err
}

// eraseAll deletes every file below root, then every directory deepest
// first, then root itself. It keeps going past failures and returns them
// joined. Erasing a missing root succeeds.
func eraseAll(root string) error {
	var dirs []string
	var errs []error

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if err := removePath(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}

	// WalkDir is pre-order, so reversing puts children before parents.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := removePath(dirs[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pruneEmptyDirs removes dir and its ancestors up to, but not including,
// root for as long as they are empty.
func pruneEmptyDirs(root, dir string) {
	for dir != root && len(dir) > len(root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
