// Package trace reads memory-access traces in the Valgrind lackey format.
// This package has no dependencies on sim/ or sim/cache/; it produces pure data types.
package trace

import "fmt"

// Kind is the operation a trace record performs.
type Kind byte

const (
	Instruction Kind = 'I'
	Load        Kind = 'L'
	Store       Kind = 'S'
	Modify      Kind = 'M' // a load followed by a store to the same address
)

// kindByOp maps trace operator characters to record kinds.
var kindByOp = map[byte]Kind{
	'I': Instruction,
	'L': Load,
	'S': Store,
	'M': Modify,
}

// String returns the operator character used in trace files.
func (k Kind) String() string {
	return string(rune(k))
}

// Accesses returns the number of cache accesses a record of this kind performs.
func (k Kind) Accesses() int {
	switch k {
	case Load, Store:
		return 1
	case Modify:
		return 2
	default:
		return 0
	}
}

// Record is one parsed trace line.
type Record struct {
	Kind    Kind
	Address uint64
	Size    int
}

// String formats the record the way it appears in a trace, without the
// leading indentation.
func (r Record) String() string {
	return fmt.Sprintf("%s %x,%d", r.Kind, r.Address, r.Size)
}
