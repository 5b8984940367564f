package coverage

import "github.com/gotestmon/testmon/internal/block"

// ChecksumCoverage maps a file's blocks against a set of executed line
// numbers to the list of block checksums that were "hit": a block is hit
// iff any line in [StartLine,EndLine] appears in executedLines. Output is
// ordered the same as blocks (the module block, being first and spanning
// the whole file, is hit iff any line at all was executed).
func ChecksumCoverage(blocks []block.Block, executedLines map[int]bool) []uint32 {
	var hit []uint32

	for _, b := range blocks {
		if blockHit(b, executedLines) {
			hit = append(hit, b.Checksum)
		}
	}

	return hit
}

func blockHit(b block.Block, executedLines map[int]bool) bool {
	for line := b.StartLine; line <= b.EndLine; line++ {
		if executedLines[line] {
			return true
		}
	}

	return false
}

// DedupeChecksums reduces a checksum list to its set of distinct values,
// preserving first-seen order — the dependency store records deduplicated
// checksum lists per spec.
func DedupeChecksums(checksums []uint32) []uint32 {
	seen := make(map[uint32]bool, len(checksums))

	out := make([]uint32, 0, len(checksums))

	for _, c := range checksums {
		if seen[c] {
			continue
		}

		seen[c] = true

		out = append(out, c)
	}

	return out
}
