package sim

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cache-sim/cache-sim/sim/cache"
	"github.com/cache-sim/cache-sim/sim/trace"
)

// Simulator replays trace records against a cache it owns and counts the outcomes.
type Simulator struct {
	Cache *cache.Cache
	Stats Stats
	// Verbose, when set, receives one annotated line per non-instruction record.
	Verbose io.Writer
	// Records counts trace records seen, instructions included.
	Records int
}

// NewSimulator builds a simulator over a cold cache. Panics on an invalid
// geometry, the same way cache.New does.
func NewSimulator(g cache.Geometry) *Simulator {
	return &Simulator{Cache: cache.New(g)}
}

// Process applies one trace record and returns the outcomes of the accesses
// it performed, in order. Instruction fetches perform none. A modify is a
// load followed by a store to the same address, so its second access always
// hits.
func (sim *Simulator) Process(rec trace.Record) []cache.Outcome {
	sim.Records++
	n := rec.Kind.Accesses()
	if n == 0 {
		return nil
	}

	outcomes := make([]cache.Outcome, 0, n)
	for i := 0; i < n; i++ {
		o := sim.Cache.Access(rec.Address)
		sim.Stats.Record(o)
		outcomes = append(outcomes, o)
	}

	logrus.Debugf("[record %07d] %s -> %v", sim.Records, rec, outcomes)
	if sim.Verbose != nil {
		sim.writeVerbose(rec, outcomes)
	}
	return outcomes
}

func (sim *Simulator) writeVerbose(rec trace.Record, outcomes []cache.Outcome) {
	var b strings.Builder
	b.WriteString(rec.String())
	for _, o := range outcomes {
		b.WriteByte(' ')
		b.WriteString(o.String())
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(sim.Verbose, b.String()); err != nil {
		logrus.Warnf("verbose output failed: %v", err)
	}
}

// Run drains a trace reader through the simulator.
func (sim *Simulator) Run(r *trace.Reader) error {
	g := sim.Cache.Geometry()
	logrus.Infof("Starting replay with %d sets x %d ways, %d-byte blocks (%v)",
		g.NumSets(), g.Ways, 1<<g.BlockBits, g)
	for r.Next() {
		sim.Process(r.Record())
	}
	if err := r.Err(); err != nil {
		return err
	}
	logrus.Infof("Replay ended after %d records (%d lines skipped): %s", sim.Records, r.Skipped(), sim.Stats)
	return nil
}

// RunFile simulates the trace at path on a fresh cache and returns the final
// counts. verbose may be nil.
func RunFile(g cache.Geometry, path string, verbose io.Writer) (Stats, error) {
	if err := g.Validate(); err != nil {
		return Stats{}, fmt.Errorf("invalid geometry: %w", err)
	}
	r, err := trace.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = r.Close() }()

	sim := NewSimulator(g)
	sim.Verbose = verbose
	logrus.Debugf("Replaying trace %s", path)
	if err := sim.Run(r); err != nil {
		return Stats{}, err
	}
	return sim.Stats, nil
}
