package sourcetree

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"os"
	"path/filepath"

	"github.com/gotestmon/testmon/internal/block"
)

// Changed walks every path the tree currently tracks, compares mtimes and
// content hashes against the stored fingerprint, and returns the set of
// files whose content has changed since the last observation — re-parsed
// via the block package.
//
// A path whose mtime is unchanged from the stored value is assumed
// unchanged and is not re-hashed. A path that has vanished from disk is
// reported changed with an empty Module: spec.md's Change Detector treats a
// vanished tracked file as changed, not silently unchanged, so dependents
// are correctly re-selected.
func (t *Tree) Changed() (map[string]block.Module, error) {
	changed := make(map[string]block.Module)

	for _, path := range t.TrackedPaths() {
		fp, ok := t.Fingerprint(path)
		if !ok {
			continue
		}

		full := filepath.Join(t.RootDir, path)

		info, err := os.Stat(full)
		if os.IsNotExist(err) {
			changed[path] = block.Module{}
			t.forgetFingerprint(path)

			continue
		}

		if err != nil {
			return nil, err
		}

		if info.ModTime().Equal(fp.ModTime) {
			continue
		}

		data, err := os.ReadFile(full) //nolint:gosec // path is a tracked project-relative path
		if err != nil {
			return nil, err
		}

		sum := sha1.Sum(data) //nolint:gosec // content fingerprint, not a security boundary
		fp.ModTime = info.ModTime()

		if sum == fp.ContentSHA1 {
			t.setFingerprint(fp)

			continue
		}

		fp.ContentSHA1 = sum
		mod := block.Extract(data, path)
		fp.Blocks = mod.Blocks

		t.setFingerprint(fp)
		changed[path] = mod
	}

	return changed, nil
}

// Track adds path to the tree's registry, parsing its current content.
// Used the first time a file is discovered (no prior fingerprint to compare
// against).
func (t *Tree) Track(path string) error {
	full := filepath.Join(t.RootDir, path)

	info, err := os.Stat(full)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(full) //nolint:gosec // path is a tracked project-relative path
	if err != nil {
		return err
	}

	mod := block.Extract(data, path)

	t.setFingerprint(FileFingerprint{
		Path:        path,
		ContentSHA1: sha1.Sum(data), //nolint:gosec // content fingerprint, not a security boundary
		ModTime:     info.ModTime(),
		Blocks:      mod.Blocks,
	})

	return nil
}
