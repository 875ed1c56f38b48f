// Tracks hit, miss and eviction counts across a trace replay.

package sim

import (
	"fmt"
	"io"

	"github.com/cache-sim/cache-sim/sim/cache"
)

// Stats aggregates access outcomes for final reporting. Counters only grow.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int // always <= Misses
}

// Record counts one access outcome.
func (s *Stats) Record(o cache.Outcome) {
	switch o {
	case cache.Hit:
		s.Hits++
	case cache.Miss:
		s.Misses++
	case cache.MissEviction:
		s.Misses++
		s.Evictions++
	}
}

// Accesses returns the total number of accesses counted.
func (s Stats) Accesses() int {
	return s.Hits + s.Misses
}

// Rate returns count as a percentage of all accesses, or 0 when there were none.
func (s Stats) Rate(count int) float64 {
	total := s.Accesses()
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// String renders the summary line, e.g. "hits:4 misses:5 evictions:3".
func (s Stats) String() string {
	return fmt.Sprintf("hits:%d misses:%d evictions:%d", s.Hits, s.Misses, s.Evictions)
}

// Print writes the summary line followed by a newline.
func (s Stats) Print(w io.Writer) error {
	_, err := fmt.Fprintln(w, s.String())
	return err
}

// ParseStats reads a summary line in the format produced by String.
func ParseStats(line string) (Stats, error) {
	var s Stats
	if _, err := fmt.Sscanf(line, "hits:%d misses:%d evictions:%d", &s.Hits, &s.Misses, &s.Evictions); err != nil {
		return Stats{}, fmt.Errorf("parsing summary %q: %w", line, err)
	}
	return s, nil
}
