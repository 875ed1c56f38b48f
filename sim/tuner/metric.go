package tuner

import (
	"fmt"

	"github.com/cache-sim/cache-sim/sim"
)

// Metric selects which rate the sweep optimizes.
type Metric byte

const (
	HitRate      Metric = 'h' // maximize, must be >= target
	MissRate     Metric = 'm' // minimize, must be <= target
	EvictionRate Metric = 'e' // minimize, must be <= target
)

// ParseMetric accepts the single-letter metric names used on the command line.
func ParseMetric(s string) (Metric, error) {
	if len(s) == 1 {
		switch m := Metric(s[0]); m {
		case HitRate, MissRate, EvictionRate:
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q (want h, m or e)", s)
}

// String returns the command-line letter.
func (m Metric) String() string {
	return string(rune(m))
}

// Name returns a human-readable name for logs.
func (m Metric) Name() string {
	switch m {
	case HitRate:
		return "hit rate"
	case MissRate:
		return "miss rate"
	case EvictionRate:
		return "eviction rate"
	default:
		return "unknown"
	}
}

// Rate computes the metric for one run as a percentage of all accesses.
// The value is kept in float64 and compared against the target unrounded.
func (m Metric) Rate(s sim.Stats) float64 {
	switch m {
	case HitRate:
		return s.Rate(s.Hits)
	case MissRate:
		return s.Rate(s.Misses)
	case EvictionRate:
		return s.Rate(s.Evictions)
	default:
		return 0
	}
}

// initialBest is the bound a candidate must strictly beat to be kept.
func (m Metric) initialBest() float64 {
	if m == HitRate {
		return 0
	}
	return 100
}

// accepts reports whether rate meets target and strictly improves on best.
func (m Metric) accepts(rate, target, best float64) bool {
	if m == HitRate {
		return rate >= target && rate > best
	}
	return rate <= target && rate < best
}

// perfect reports whether no later candidate could beat rate.
func (m Metric) perfect(rate float64) bool {
	if m == HitRate {
		return rate >= 100
	}
	return rate <= 0
}
