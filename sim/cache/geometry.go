package cache

import "fmt"

// AddressBits is the width of a trace address.
const AddressBits = 64

// Geometry describes the shape of a set-associative cache.
type Geometry struct {
	SetBits   int `yaml:"s"` // s: number of set-index bits (2^s sets)
	Ways      int `yaml:"E"` // E: lines per set
	BlockBits int `yaml:"b"` // b: number of block-offset bits
}

// NumSets returns 2^s.
func (g Geometry) NumSets() int {
	return 1 << g.SetBits
}

// Validate rejects geometries the cache cannot be built from.
func (g Geometry) Validate() error {
	if g.SetBits < 0 || g.BlockBits < 0 {
		return fmt.Errorf("set bits and block bits must be >= 0, got s=%d b=%d", g.SetBits, g.BlockBits)
	}
	if g.Ways < 1 {
		return fmt.Errorf("associativity must be >= 1, got E=%d", g.Ways)
	}
	if g.SetBits+g.BlockBits > AddressBits {
		return fmt.Errorf("s+b must not exceed %d address bits, got %d", AddressBits, g.SetBits+g.BlockBits)
	}
	// 2^s sets must be allocatable as a slice.
	if g.SetBits > 30 {
		return fmt.Errorf("set bits too large to allocate, got s=%d", g.SetBits)
	}
	return nil
}

// SetIndex returns the set an address maps to: (addr >> b) & (2^s - 1).
func (g Geometry) SetIndex(addr uint64) uint64 {
	mask := uint64(1)<<uint(g.SetBits) - 1
	return (addr >> uint(g.BlockBits)) & mask
}

// Tag returns the address bits above the set index: addr >> (s + b).
func (g Geometry) Tag(addr uint64) uint64 {
	return addr >> uint(g.SetBits+g.BlockBits)
}

// Decode splits an address into its set index and tag.
func (g Geometry) Decode(addr uint64) (set uint64, tag uint64) {
	return g.SetIndex(addr), g.Tag(addr)
}

// String formats the geometry the way the command line takes it.
func (g Geometry) String() string {
	return fmt.Sprintf("-s %d -E %d -b %d", g.SetBits, g.Ways, g.BlockBits)
}
