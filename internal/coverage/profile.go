package coverage

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Profile is a parsed go test -coverprofile file: a mode line plus its blocks.
type Profile struct {
	Mode   string
	Blocks []Block
}

// ParseProfileFile reads and parses a coverage profile from disk.
func ParseProfileFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening coverage profile %s: %w", path, err)
	}
	defer f.Close()

	return parseProfile(f)
}

func parseProfile(f *os.File) (*Profile, error) {
	p := &Profile{}

	scanner := bufio.NewScanner(f)
	first := true

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if first {
			first = false

			if strings.HasPrefix(line, "mode:") {
				p.Mode = strings.TrimSpace(strings.TrimPrefix(line, "mode:"))
				continue
			}
		}

		block, err := ParseBlock(line)
		if err != nil {
			return nil, fmt.Errorf("parsing coverage line %q: %w", line, err)
		}

		p.Blocks = append(p.Blocks, block)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading coverage profile: %w", err)
	}

	return p, nil
}

// ExecutedLines expands a profile's hit blocks (Count > 0) into the set of
// executed line numbers per file. A coverage profile only records hit counts
// per basic block, not individual lines, so every line in [StartLine,EndLine]
// of a hit block is considered executed.
func ExecutedLines(p *Profile) map[string]map[int]bool {
	result := make(map[string]map[int]bool)

	for _, b := range p.Blocks {
		if b.Count <= 0 {
			continue
		}

		lines, ok := result[b.File]
		if !ok {
			lines = make(map[int]bool)
			result[b.File] = lines
		}

		for line := b.StartLine; line <= b.EndLine; line++ {
			lines[line] = true
		}
	}

	return result
}

// blockKey identifies a block irrespective of its hit count, for deduplication.
func blockKey(b Block) string {
	return fmt.Sprintf("%s:%d.%d,%d.%d %d", b.File, b.StartLine, b.StartCol, b.EndLine, b.EndCol, b.Statements)
}

// mergeBlocks combines blocks from one or more profiles, summing counts for
// blocks that share the same file/range/statement count (the "set" coverage
// mode's accumulation rule).
func mergeBlocks(blockLists ...[]Block) []Block {
	order := make([]string, 0)
	merged := make(map[string]Block)

	for _, blocks := range blockLists {
		for _, b := range blocks {
			key := blockKey(b)

			existing, ok := merged[key]
			if !ok {
				merged[key] = b
				order = append(order, key)

				continue
			}

			existing.Count += b.Count
			merged[key] = existing
		}
	}

	result := make([]Block, 0, len(order))
	for _, key := range order {
		result = append(result, merged[key])
	}

	return result
}

func writeProfile(path, mode string, blocks []Block) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "mode: %s\n", mode)

	for _, b := range blocks {
		sb.WriteString(FormatBlock(b))
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("writing coverage profile %s: %w", path, err)
	}

	return nil
}

// MergeBlocksFile rewrites a single coverage profile in place, summing the
// counts of any duplicate block entries it contains.
func MergeBlocksFile(path string) error {
	p, err := ParseProfileFile(path)
	if err != nil {
		return err
	}

	merged := mergeBlocks(p.Blocks)
	mode := p.Mode
	if mode == "" {
		mode = "set"
	}

	return writeProfile(path, mode, merged)
}

// MergeFiles merges the blocks of several coverage profiles into one,
// summing counts for blocks that appear in more than one input file.
func MergeFiles(paths []string, outputPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no coverage files to merge")
	}

	var blockLists [][]Block

	mode := ""

	for _, path := range paths {
		p, err := ParseProfileFile(path)
		if err != nil {
			return err
		}

		if mode == "" {
			mode = p.Mode
		}

		blockLists = append(blockLists, p.Blocks)
	}

	if mode == "" {
		mode = "set"
	}

	merged := mergeBlocks(blockLists...)

	return writeProfile(outputPath, mode, merged)
}

// FilterQtpl copies a coverage profile from inputPath to outputPath, dropping
// any block whose file is a generated .qtpl template (quicktemplate sources
// report coverage against their generated .go twin, not the .qtpl itself).
func FilterQtpl(inputPath, outputPath string) error {
	p, err := ParseProfileFile(inputPath)
	if err != nil {
		return err
	}

	filtered := p.Blocks[:0:0]

	for _, b := range p.Blocks {
		if strings.HasSuffix(b.File, ".qtpl") {
			continue
		}

		filtered = append(filtered, b)
	}

	mode := p.Mode
	if mode == "" {
		mode = "set"
	}

	return writeProfile(outputPath, mode, filtered)
}
