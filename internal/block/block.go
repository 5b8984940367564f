// Package block parses a Go source file into an ordered list of syntactic
// blocks — the module itself, its functions/methods, and its top-level
// struct/interface type declarations — each carrying a checksum over its
// normalized body.
package block

// Block is an immutable descriptor of a contiguous syntactic unit within one
// source file. The module block (index 0) has an empty Name and spans the
// whole file; every other block's Name is the dotted path from the file root
// to the declaration (e.g. "(*Tree).Changed").
type Block struct {
	Name      string
	StartLine int
	EndLine   int
	Checksum  uint32
}

// Module is the ordered list of blocks extracted from one source file.
// Blocks are ordered by StartLine; the module block is always first.
type Module struct {
	Blocks []Block
}

// Checksums returns the block checksums in Module order.
func (m Module) Checksums() []uint32 {
	out := make([]uint32, len(m.Blocks))
	for i, b := range m.Blocks {
		out[i] = b.Checksum
	}

	return out
}
