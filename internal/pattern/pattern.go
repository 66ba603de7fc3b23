// Package pattern defines the overwrite passes applied to every erased file.
package pattern

import "fmt"

// DefaultBlockSize is the chunk size used by the reference configuration.
const DefaultBlockSize = 8192

// Kind discriminates the two pattern variants.
type Kind uint8

const (
	// Fixed repeats a precomputed block across the write range.
	Fixed Kind = iota
	// Random generates fresh bytes for every chunk.
	Random
)

func (k Kind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case Random:
		return "random"
	default:
		return "unknown"
	}
}

// Pattern describes a single pass. The zero value is not a valid pattern;
// build one with Fill or RandomFill.
type Pattern struct {
	kind  Kind
	fill  byte
	block []byte
}

// Fill returns a fixed pattern whose block is blockSize copies of b.
func Fill(b byte, blockSize int) Pattern {
	if blockSize <= 0 {
		panic(fmt.Sprintf("pattern: invalid block size %d", blockSize))
	}
	block := make([]byte, blockSize)
	for i := range block {
		block[i] = b
	}
	return Pattern{kind: Fixed, fill: b, block: block}
}

// RandomFill returns the marker pattern for a random pass.
func RandomFill() Pattern {
	return Pattern{kind: Random}
}

// Kind reports which variant p is.
func (p Pattern) Kind() Kind { return p.kind }

// IsRandom reports whether every chunk of this pass must be freshly generated.
func (p Pattern) IsRandom() bool { return p.kind == Random }

// Chunk returns the first n bytes of a fixed pattern's block. Callers must not
// modify the result; the block is shared by every writer using the catalog.
// It panics for random patterns or when n exceeds the block size.
func (p Pattern) Chunk(n int) []byte {
	if p.kind != Fixed {
		panic("pattern: Chunk called on random pattern")
	}
	return p.block[:n]
}

// BlockSize returns the size of a fixed pattern's block, or 0 for random.
func (p Pattern) BlockSize() int { return len(p.block) }

func (p Pattern) String() string {
	if p.kind == Random {
		return "random"
	}
	return fmt.Sprintf("0x%02X", p.fill)
}
