// Package cache models a set-associative cache with LRU replacement.
//
// Each line carries a recency counter: 0 for the most recently used line,
// incremented on every access to its set that does not use it. The line
// with the largest counter is therefore the least recently used, with no
// global clock needed.
package cache

import "fmt"

// Line is a single cache line.
type Line struct {
	Valid   bool
	Tag     uint64
	Recency int // accesses to this set since the line was last used
}

// Set is a fixed-length group of lines. Line order only matters for
// victim tie-breaking.
type Set struct {
	Lines []Line
}

// Outcome classifies one cache access.
type Outcome int

const (
	Hit Outcome = iota
	Miss
	MissEviction // a miss that displaced a valid line
)

// String returns the verbose-trace annotation for the outcome.
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case MissEviction:
		return "miss eviction"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Cache owns 2^s sets of E lines each. Its shape never changes after
// construction.
type Cache struct {
	geometry Geometry
	sets     []Set
}

// New allocates a cache with every line invalid.
// Panics if the geometry is invalid; callers validate user input first.
func New(g Geometry) *Cache {
	if err := g.Validate(); err != nil {
		panic(fmt.Sprintf("cache: %v", err))
	}
	sets := make([]Set, g.NumSets())
	for i := range sets {
		sets[i].Lines = make([]Line, g.Ways)
	}
	return &Cache{geometry: g, sets: sets}
}

// Geometry returns the shape the cache was built with.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Set returns a copy of the lines in one set.
func (c *Cache) Set(set uint64) []Line {
	lines := make([]Line, len(c.sets[set].Lines))
	copy(lines, c.sets[set].Lines)
	return lines
}

// Lookup returns the way holding a valid line with the given tag.
func (c *Cache) Lookup(set uint64, tag uint64) (int, bool) {
	for way, line := range c.sets[set].Lines {
		if line.Valid && line.Tag == tag {
			return way, true
		}
	}
	return 0, false
}

// Touch marks a line most recently used and ages every other line in its set.
func (c *Cache) Touch(set uint64, way int) {
	lines := c.sets[set].Lines
	for i := range lines {
		if i == way {
			lines[i].Recency = 0
		} else {
			lines[i].Recency++
		}
	}
}

// Install places a tag into a line, making it valid and most recently used.
// Other lines in the set are left as they are.
func (c *Cache) Install(set uint64, way int, tag uint64) {
	line := &c.sets[set].Lines[way]
	line.Valid = true
	line.Tag = tag
	line.Recency = 0
}

// SelectVictim picks the line a miss should fill. The first invalid line
// wins; otherwise the line with the strictly largest recency, keeping the
// lowest way on ties. evict reports whether a valid line is displaced.
func (c *Cache) SelectVictim(set uint64) (way int, evict bool) {
	lines := c.sets[set].Lines
	for i, line := range lines {
		if !line.Valid {
			return i, false
		}
	}

	victim := 0
	for i := 1; i < len(lines); i++ {
		if lines[i].Recency > lines[victim].Recency {
			victim = i
		}
	}
	return victim, true
}

// Access runs one memory access through the cache and classifies it.
// Exactly one line changes state; every other line in the set ages by one.
func (c *Cache) Access(addr uint64) Outcome {
	set, tag := c.geometry.Decode(addr)

	if way, ok := c.Lookup(set, tag); ok {
		c.Touch(set, way)
		return Hit
	}

	way, evict := c.SelectVictim(set)
	c.Install(set, way, tag)
	c.Touch(set, way)
	if evict {
		return MissEviction
	}
	return Miss
}
