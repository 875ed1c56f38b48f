package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
)

// linePattern matches "<op> <hex-address>,<size>" with optional leading whitespace.
// The address may carry a 0x prefix and the size may be signed. Anything
// after the size is ignored.
var linePattern = regexp.MustCompile(`^\s*([ILSM])\s+(?:0[xX])?([0-9a-fA-F]+),(-?\d+)`)

// Reader yields trace records one at a time. Lines that do not look like a
// trace record are skipped without error, whatever their length.
type Reader struct {
	src     *bufio.Reader
	closer  io.Closer
	record  Record
	line    int
	skipped int
	done    bool
	err     error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: bufio.NewReader(r)}
}

// Open returns a Reader over the trace file at path. The caller must Close it.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	r := NewReader(file)
	r.closer = file
	return r, nil
}

// Close releases the file behind a Reader returned by Open. It is a no-op
// for readers built with NewReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Next advances to the next record. It returns false at end of input or on
// a read error; check Err afterwards.
func (r *Reader) Next() bool {
	for !r.done {
		text, err := r.src.ReadString('\n')
		if err != nil {
			r.done = true
			if !errors.Is(err, io.EOF) {
				r.err = fmt.Errorf("reading trace line %d: %w", r.line+1, err)
				return false
			}
		}
		if text == "" {
			continue
		}
		r.line++
		rec, ok := ParseLine(text)
		if !ok {
			r.skipped++
			continue
		}
		r.record = rec
		return true
	}
	return false
}

// Record returns the record produced by the last successful Next.
func (r *Reader) Record() Record {
	return r.record
}

// Err returns the first read error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// Skipped returns the number of lines that did not parse as records.
func (r *Reader) Skipped() int {
	return r.skipped
}

// ParseLine parses a single trace line. ok is false for lines that are not
// records (blank lines, headers, trailing garbage).
func ParseLine(line string) (rec Record, ok bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Record{}, false
	}
	addr, err := strconv.ParseUint(m[2], 16, 64)
	if err != nil {
		return Record{}, false // address wider than 64 bits
	}
	size, err := strconv.Atoi(m[3])
	if err != nil {
		return Record{}, false
	}
	return Record{Kind: kindByOp[m[1][0]], Address: addr, Size: size}, true
}

// ReadFile opens the trace at path and calls fn for every record in file
// order. The file is closed on every return path. Iteration stops at the
// first error returned by fn.
func ReadFile(path string, fn func(Record) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	for r.Next() {
		if err := fn(r.Record()); err != nil {
			return err
		}
	}
	return r.Err()
}
