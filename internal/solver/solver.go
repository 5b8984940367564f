// Package solver computes, from each test's recorded file dependencies and
// the set of files observed to have changed, which tests are still safe to
// skip.
package solver

import "github.com/gotestmon/testmon/internal/block"

// Result is the outcome of one Unaffected computation.
type Result struct {
	UnaffectedNodes map[string]map[string][]uint32
	UnaffectedFiles map[string]bool
}

// Unaffected computes the subset of nodeData (test → file → checksums) whose
// tests are unaffected by changedFiles (file → current blocks).
//
// A test is affected iff some file it depends on is in changedFiles and the
// test's recorded checksums for that file are not a subset of the file's
// current block checksums — including a deleted file, which callers report
// via an empty block.Module in changedFiles. A test with no recorded
// dependencies is always unaffected.
func Unaffected(
	nodeData map[string]map[string][]uint32,
	changedFiles map[string]block.Module,
) Result {
	currentChecksums := make(map[string]map[uint32]bool, len(changedFiles))
	for file, mod := range changedFiles {
		set := make(map[uint32]bool, len(mod.Blocks))
		for _, b := range mod.Blocks {
			set[b.Checksum] = true
		}

		currentChecksums[file] = set
	}

	unaffectedNodes := make(map[string]map[string][]uint32, len(nodeData))
	allFiles := make(map[string]bool)
	affectedFiles := make(map[string]bool)

	for test, deps := range nodeData {
		for file := range deps {
			allFiles[file] = true
		}

		if testAffected(deps, currentChecksums) {
			for file := range deps {
				affectedFiles[file] = true
			}

			continue
		}

		unaffectedNodes[test] = deps
	}

	unaffectedFiles := make(map[string]bool)

	for file := range allFiles {
		if !affectedFiles[file] {
			unaffectedFiles[file] = true
		}
	}

	return Result{UnaffectedNodes: unaffectedNodes, UnaffectedFiles: unaffectedFiles}
}

func testAffected(deps map[string][]uint32, currentChecksums map[string]map[uint32]bool) bool {
	for file, recorded := range deps {
		current, changed := currentChecksums[file]
		if !changed {
			continue
		}

		for _, c := range recorded {
			if !current[c] {
				return true
			}
		}
	}

	return false
}
