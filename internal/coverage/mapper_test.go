package coverage_test

import (
	"testing"

	"github.com/gotestmon/testmon/internal/block"
	"github.com/gotestmon/testmon/internal/coverage"
)

func TestChecksumCoverage_HitsIntersectingBlocks(t *testing.T) {
	blocks := []block.Block{
		{Name: "", StartLine: 1, EndLine: 20, Checksum: 1},
		{Name: "Add", StartLine: 3, EndLine: 5, Checksum: 2},
		{Name: "Sub", StartLine: 7, EndLine: 9, Checksum: 3},
	}

	executed := map[int]bool{4: true, 18: true}

	got := coverage.ChecksumCoverage(blocks, executed)

	want := []uint32{1, 2}
	if len(got) != len(want) {
		t.Fatalf("ChecksumCoverage() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ChecksumCoverage()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestChecksumCoverage_NoExecutedLinesYieldsNone(t *testing.T) {
	blocks := []block.Block{
		{Name: "", StartLine: 1, EndLine: 20, Checksum: 1},
		{Name: "Add", StartLine: 3, EndLine: 5, Checksum: 2},
	}

	got := coverage.ChecksumCoverage(blocks, map[int]bool{})

	if len(got) != 0 {
		t.Errorf("ChecksumCoverage() = %v, want empty", got)
	}
}

func TestChecksumCoverage_PreservesBlockOrder(t *testing.T) {
	blocks := []block.Block{
		{Name: "Z", StartLine: 10, EndLine: 12, Checksum: 9},
		{Name: "", StartLine: 1, EndLine: 20, Checksum: 1},
		{Name: "A", StartLine: 2, EndLine: 4, Checksum: 5},
	}

	executed := map[int]bool{2: true, 11: true, 15: true}

	got := coverage.ChecksumCoverage(blocks, executed)

	want := []uint32{9, 1, 5}
	if len(got) != len(want) {
		t.Fatalf("ChecksumCoverage() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ChecksumCoverage()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDedupeChecksums_PreservesFirstSeenOrder(t *testing.T) {
	got := coverage.DedupeChecksums([]uint32{3, 1, 3, 2, 1})

	want := []uint32{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("DedupeChecksums() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DedupeChecksums()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
