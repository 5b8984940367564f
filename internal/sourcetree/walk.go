package sourcetree

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover expands Include against RootDir and drops anything matching
// Exclude, returning the sorted, deduplicated set of relative paths the tree
// should track. A Tree with no Include patterns defaults to "**/*.go".
func (t *Tree) Discover() ([]string, error) {
	include := t.Include
	if len(include) == 0 {
		include = []string{"**/*.go"}
	}

	fsys := os.DirFS(t.RootDir)

	seen := make(map[string]bool)

	var paths []string

	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, err
		}

		for _, m := range matches {
			if seen[m] {
				continue
			}

			excluded, err := matchesAny(t.Exclude, m)
			if err != nil {
				return nil, err
			}

			if excluded {
				continue
			}

			seen[m] = true
			paths = append(paths, m)
		}
	}

	sort.Strings(paths)

	return paths, nil
}

func matchesAny(patterns []string, path string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(filepath.ToSlash(pattern), path)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}
