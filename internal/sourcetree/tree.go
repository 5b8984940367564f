// Package sourcetree tracks the on-disk state of a project's source files —
// per-file modification time, content hash, and last-parsed blocks — and
// reports which files have changed since the last observation.
package sourcetree

import (
	"time"

	"github.com/gotestmon/testmon/internal/block"
)

// FileFingerprint is a file's last-known state: its content hash, mtime, and
// the blocks extracted from it the last time its content was observed to
// change.
type FileFingerprint struct {
	Path        string
	ContentSHA1 [20]byte
	ModTime     time.Time
	Blocks      []block.Block
}

// Tree is a live view of a project rooted at RootDir, tracking the last-known
// fingerprint of every path that has been observed at least once.
type Tree struct {
	RootDir      string
	Include      []string
	Exclude      []string
	fingerprints map[string]FileFingerprint
}

// New creates a Tree rooted at rootDir, scoped to paths matching include and
// not matching exclude (doublestar glob patterns, relative to rootDir).
func New(rootDir string, include, exclude []string) *Tree {
	return &Tree{
		RootDir:      rootDir,
		Include:      include,
		Exclude:      exclude,
		fingerprints: make(map[string]FileFingerprint),
	}
}

// Fingerprint returns the last-known fingerprint for path, if any.
func (t *Tree) Fingerprint(path string) (FileFingerprint, bool) {
	fp, ok := t.fingerprints[path]

	return fp, ok
}

// TrackedPaths returns every path the tree currently has a fingerprint for.
func (t *Tree) TrackedPaths() []string {
	paths := make([]string, 0, len(t.fingerprints))
	for p := range t.fingerprints {
		paths = append(paths, p)
	}

	return paths
}

// CurrentChecksums returns the block checksums recorded for path's last
// observed state, or nil if path has never been observed.
func (t *Tree) CurrentChecksums(path string) []uint32 {
	fp, ok := t.fingerprints[path]
	if !ok {
		return nil
	}

	out := make([]uint32, len(fp.Blocks))
	for i, b := range fp.Blocks {
		out[i] = b.Checksum
	}

	return out
}

func (t *Tree) setFingerprint(fp FileFingerprint) {
	t.fingerprints[fp.Path] = fp
}

func (t *Tree) forgetFingerprint(path string) {
	delete(t.fingerprints, path)
}

// Seed restores a previously persisted mtime/content-hash pair for path
// without blocks, so the next Changed() call can detect whether it has
// changed since that snapshot was taken. Used to hydrate the tree from the
// Dependency Store's metadata rows at run start.
func (t *Tree) Seed(path string, modTime time.Time, contentSHA1 [20]byte) {
	t.fingerprints[path] = FileFingerprint{
		Path:        path,
		ContentSHA1: contentSHA1,
		ModTime:     modTime,
	}
}

// Snapshot returns the current mtime/content-hash pair for every tracked
// path, for persistence back to the Dependency Store's metadata rows.
func (t *Tree) Snapshot() map[string]FileFingerprint {
	out := make(map[string]FileFingerprint, len(t.fingerprints))
	for path, fp := range t.fingerprints {
		out[path] = fp
	}

	return out
}
