// Package tuner sweeps cache geometries over a trace and picks the one that
// best satisfies a target hit, miss or eviction rate.
package tuner

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/cache-sim/cache-sim/sim"
	"github.com/cache-sim/cache-sim/sim/cache"
)

// Search-space bounds. Every geometry with 2^s <= 32 sets, up to 4 ways and
// 2^b <= 32-byte blocks is tried.
const (
	MinSetBits   = 1
	MaxSetBits   = 5
	MinWays      = 1
	MaxWays      = 4
	MinBlockBits = 1
	MaxBlockBits = 5
)

// Config describes one sweep.
type Config struct {
	Metric Metric
	Target float64 // percent, 0..100
	Trace  string
}

// Validate rejects configurations the sweep cannot run with.
func (c Config) Validate() error {
	if _, err := ParseMetric(c.Metric.String()); err != nil {
		return err
	}
	if c.Target < 0 || c.Target > 100 {
		return fmt.Errorf("target rate must be within [0, 100], got %.2f", c.Target)
	}
	if c.Trace == "" {
		return fmt.Errorf("trace file not provided")
	}
	return nil
}

// Candidate is one evaluated geometry.
type Candidate struct {
	Geometry cache.Geometry
	Trace    string
	Metric   Metric
	Target   float64
	Stats    sim.Stats
	Rate     float64
	Accepted bool  // became the new best when evaluated
	Err      error // runner failure; Stats are zero
}

// Result is the outcome of a sweep.
type Result struct {
	Found     bool
	Best      Candidate
	Command   string // invocation reproducing the best candidate
	Evaluated int
}

// Geometries returns the search space in sweep order: s outermost, then E, then b.
func Geometries() []cache.Geometry {
	var out []cache.Geometry
	for s := MinSetBits; s <= MaxSetBits; s++ {
		for e := MinWays; e <= MaxWays; e++ {
			for b := MinBlockBits; b <= MaxBlockBits; b++ {
				out = append(out, cache.Geometry{SetBits: s, Ways: e, BlockBits: b})
			}
		}
	}
	return out
}

// Tuner runs sweeps with a runner and an optional recorder.
type Tuner struct {
	Runner   Runner
	Recorder Recorder
}

// New returns a Tuner. A nil recorder discards candidates.
func New(runner Runner, recorder Recorder) *Tuner {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Tuner{Runner: runner, Recorder: recorder}
}

// Search evaluates geometries in order and keeps the best one meeting the
// target. A candidate whose run fails is logged and skipped; a candidate
// with no accesses is skipped. The sweep stops early at a perfect rate or
// when ctx is cancelled.
func (t *Tuner) Search(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	var res Result
	best := cfg.Metric.initialBest()
	logrus.Infof("Sweeping %d geometries for %s target %.2f on %s",
		len(Geometries()), cfg.Metric.Name(), cfg.Target, cfg.Trace)

	for _, g := range Geometries() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		c := Candidate{Geometry: g, Trace: cfg.Trace, Metric: cfg.Metric, Target: cfg.Target}
		stats, err := t.Runner.Run(ctx, g, cfg.Trace)
		res.Evaluated++
		if err != nil {
			c.Err = err
			logrus.Warnf("Skipping %s: %v", g, err)
			t.record(c)
			continue
		}

		c.Stats = stats
		if stats.Accesses() == 0 {
			logrus.Debugf("Skipping %s: no accesses", g)
			t.record(c)
			continue
		}

		c.Rate = cfg.Metric.Rate(stats)
		if cfg.Metric.accepts(c.Rate, cfg.Target, best) {
			c.Accepted = true
			best = c.Rate
			res.Found = true
			res.Best = c
			res.Command = t.Runner.Command(g, cfg.Trace)
			logrus.Infof("New best %s: %s = %.2f (%s)", g, cfg.Metric.Name(), c.Rate, stats)
		}
		t.record(c)

		if c.Accepted && cfg.Metric.perfect(c.Rate) {
			logrus.Infof("Perfect %s reached, stopping after %d candidates", cfg.Metric.Name(), res.Evaluated)
			break
		}
	}
	return res, nil
}

func (t *Tuner) record(c Candidate) {
	if err := t.Recorder.RecordCandidate(c); err != nil {
		logrus.Warnf("%v", err)
	}
}

// Report writes the sweep result: the winning command and its summary line,
// or a not-found message.
func (r Result) Report(w io.Writer) error {
	if !r.Found {
		_, err := fmt.Fprintln(w, "No valid configuration found")
		return err
	}
	if _, err := fmt.Fprintln(w, r.Command); err != nil {
		return err
	}
	return r.Best.Stats.Print(w)
}
