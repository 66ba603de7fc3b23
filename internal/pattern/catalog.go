package pattern

// Catalog holds the ordered pass sequences. It is built once and never
// mutated, so erasure workers read it without synchronization.
type Catalog struct {
	blockSize int

	// StandardA is the 3-pass sequence: zeros, ones, random.
	StandardA []Pattern
	// StandardB is the 7-pass sequence: 0x55, 0xAA, 0x92, 0x49, 0x00, 0xFF, random.
	StandardB []Pattern
	// Final is the unconditional random pass applied after both sequences.
	Final Pattern
}

// Default is the catalog for DefaultBlockSize.
var Default = NewCatalog(DefaultBlockSize)

// NewCatalog builds the catalog with fixed blocks of blockSize bytes.
func NewCatalog(blockSize int) *Catalog {
	return &Catalog{
		blockSize: blockSize,
		StandardA: []Pattern{
			Fill(0x00, blockSize),
			Fill(0xFF, blockSize),
			RandomFill(),
		},
		StandardB: []Pattern{
			Fill(0x55, blockSize), // 01010101
			Fill(0xAA, blockSize), // 10101010
			Fill(0x92, blockSize), // 10010010
			Fill(0x49, blockSize), // 01001001
			Fill(0x00, blockSize),
			Fill(0xFF, blockSize),
			RandomFill(),
		},
		Final: RandomFill(),
	}
}

// BlockSize returns the chunk size the catalog was built for.
func (c *Catalog) BlockSize() int { return c.blockSize }

// Sequence returns every pass in application order: StandardA, then
// StandardB, then Final. The returned slice is a fresh copy.
func (c *Catalog) Sequence() []Pattern {
	seq := make([]Pattern, 0, len(c.StandardA)+len(c.StandardB)+1)
	seq = append(seq, c.StandardA...)
	seq = append(seq, c.StandardB...)
	return append(seq, c.Final)
}

// Passes returns the number of passes in Sequence.
func (c *Catalog) Passes() int {
	return len(c.StandardA) + len(c.StandardB) + 1
}
