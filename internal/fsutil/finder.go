// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Find returns the files under root whose names end with one of exts, in
// lexical order. Directories starting with a dot are skipped. A root that is
// itself a file is returned as-is when it matches.
func Find(root string, exts ...string) ([]string, error) {
	if len(exts) == 0 {
		panic("at least one extension is required")
	}
	match := func(name string) bool {
		return slices.ContainsFunc(exts, func(ext string) bool { return strings.HasSuffix(name, ext) })
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if !match(info.Name()) {
			return nil, fmt.Errorf("%s does not have one of the extensions %v", root, exts)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// Expand replaces every directory in paths with the matching files it
// holds. Order is kept and files are returned once.
func Expand(paths []string, exts ...string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, p := range paths {
		found, err := Find(p, exts...)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}
