package sim

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cache-sim/cache-sim/sim/cache"
	"github.com/cache-sim/cache-sim/sim/internal/testutil"
	"github.com/cache-sim/cache-sim/sim/trace"
)

// TestSimulator_GoldenDataset validates replay results against testdata/goldendataset.json.
func TestSimulator_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	require.NotEmpty(t, dataset.Tests)

	for _, tc := range dataset.Tests {
		g := cache.Geometry{SetBits: tc.SetBits, Ways: tc.Ways, BlockBits: tc.BlockBits}
		t.Run(fmt.Sprintf("%s %s", tc.Trace, g), func(t *testing.T) {
			stats, err := RunFile(g, testutil.TracePath(t, tc.Trace), nil)
			require.NoError(t, err)

			assert.Equal(t, Stats{Hits: tc.Hits, Misses: tc.Misses, Evictions: tc.Evictions}, stats)
		})
	}
}

func TestSimulator_Process_InstructionIsNoOp(t *testing.T) {
	// GIVEN a simulator with a resident line
	sim := NewSimulator(cache.Geometry{SetBits: 0, Ways: 1, BlockBits: 0})
	sim.Process(trace.Record{Kind: trace.Load, Address: 0x40, Size: 1})
	before := sim.Cache.Set(0)

	// WHEN an instruction fetch to another address is processed
	outcomes := sim.Process(trace.Record{Kind: trace.Instruction, Address: 0x80, Size: 4})

	// THEN neither the cache nor the counts change
	assert.Empty(t, outcomes)
	assert.Equal(t, before, sim.Cache.Set(0))
	assert.Equal(t, Stats{Misses: 1}, sim.Stats)
	assert.Equal(t, 2, sim.Records)
}

func TestSimulator_Process_ModifyColdIsMissThenHit(t *testing.T) {
	sim := NewSimulator(cache.Geometry{SetBits: 2, Ways: 2, BlockBits: 4})

	outcomes := sim.Process(trace.Record{Kind: trace.Modify, Address: 0x1234, Size: 8})

	assert.Equal(t, []cache.Outcome{cache.Miss, cache.Hit}, outcomes)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, sim.Stats)
}

func TestSimulator_Process_ModifyResidentIsTwoHits(t *testing.T) {
	sim := NewSimulator(cache.Geometry{SetBits: 2, Ways: 2, BlockBits: 4})
	sim.Process(trace.Record{Kind: trace.Load, Address: 0x1234, Size: 8})

	outcomes := sim.Process(trace.Record{Kind: trace.Modify, Address: 0x1238, Size: 8})

	assert.Equal(t, []cache.Outcome{cache.Hit, cache.Hit}, outcomes)
	assert.Equal(t, Stats{Hits: 2, Misses: 1}, sim.Stats)
}

func TestSimulator_Process_ModifyEvictingIsEvictionThenHit(t *testing.T) {
	sim := NewSimulator(cache.Geometry{SetBits: 0, Ways: 1, BlockBits: 0})
	sim.Process(trace.Record{Kind: trace.Store, Address: 1, Size: 1})

	outcomes := sim.Process(trace.Record{Kind: trace.Modify, Address: 2, Size: 1})

	assert.Equal(t, []cache.Outcome{cache.MissEviction, cache.Hit}, outcomes)
	assert.Equal(t, Stats{Hits: 1, Misses: 2, Evictions: 1}, sim.Stats)
}

func TestSimulator_Run_ConservesAccesses(t *testing.T) {
	// GIVEN a mixed trace of loads, stores, modifies and instructions
	var b strings.Builder
	want := 0
	ops := []trace.Kind{trace.Load, trace.Store, trace.Modify, trace.Instruction}
	for i := 0; i < 400; i++ {
		k := ops[(i*7)%len(ops)]
		fmt.Fprintf(&b, " %s %x,4\n", k, (i*i*37)%0x4000)
		want += k.Accesses()
	}

	for _, g := range []cache.Geometry{
		{SetBits: 0, Ways: 1, BlockBits: 0},
		{SetBits: 2, Ways: 2, BlockBits: 3},
		{SetBits: 4, Ways: 4, BlockBits: 5},
	} {
		// WHEN it is replayed
		sim := NewSimulator(g)
		require.NoError(t, sim.Run(trace.NewReader(strings.NewReader(b.String()))))

		// THEN hits + misses equals the access count and evictions never exceed misses
		assert.Equal(t, want, sim.Stats.Accesses(), "geometry %s", g)
		assert.LessOrEqual(t, sim.Stats.Evictions, sim.Stats.Misses, "geometry %s", g)
		assert.Equal(t, 400, sim.Records)
	}
}

func TestSimulator_Run_IsDeterministic(t *testing.T) {
	src := " L 10,1\n M 20,1\n L 22,1\n S 18,1\n L 110,1\n L 210,1\n M 12,1\n"
	g := cache.Geometry{SetBits: 1, Ways: 2, BlockBits: 2}

	first := NewSimulator(g)
	require.NoError(t, first.Run(trace.NewReader(strings.NewReader(src))))
	second := NewSimulator(g)
	require.NoError(t, second.Run(trace.NewReader(strings.NewReader(src))))

	assert.Equal(t, first.Stats, second.Stats)
}

func TestSimulator_Verbose_AnnotatesEachRecord(t *testing.T) {
	// GIVEN the yi trace under s=4 E=1 b=4 with verbose output
	var out bytes.Buffer
	stats, err := RunFile(cache.Geometry{SetBits: 4, Ways: 1, BlockBits: 4},
		testutil.TracePath(t, "yi.trace"), &out)
	require.NoError(t, err)

	// THEN each record gets one line with an annotation per access
	want := strings.Join([]string{
		"L 10,1 miss",
		"M 20,1 miss hit",
		"L 22,1 hit",
		"S 18,1 hit",
		"L 110,1 miss eviction",
		"L 210,1 miss eviction",
		"M 12,1 miss eviction hit",
		"",
	}, "\n")
	assert.Equal(t, want, out.String())
	assert.Equal(t, "hits:4 misses:5 evictions:3", stats.String())
}

func TestSimulator_Verbose_SkipsInstructions(t *testing.T) {
	var out bytes.Buffer
	_, err := RunFile(cache.Geometry{SetBits: 0, Ways: 2, BlockBits: 0},
		testutil.TracePath(t, "lru.trace"), &out)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "I ")
	assert.Equal(t, 6, strings.Count(out.String(), "\n"))
}

func TestRunFile_MissingTrace(t *testing.T) {
	_, err := RunFile(cache.Geometry{SetBits: 1, Ways: 1, BlockBits: 1},
		testutil.TracePath(t, "does-not-exist.trace"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening trace")
}

func TestRunFile_InvalidGeometry(t *testing.T) {
	_, err := RunFile(cache.Geometry{SetBits: 1, Ways: 0, BlockBits: 1},
		testutil.TracePath(t, "yi.trace"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid geometry")
}

func TestRunFile_OverlongJunkLine_Skipped(t *testing.T) {
	// GIVEN a trace file with a 70000-byte junk line between two loads of the same block
	path := filepath.Join(t.TempDir(), "junk.trace")
	body := " L 10,1\n" + strings.Repeat("x", 70000) + "\n L 10,1\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	// WHEN the file is replayed
	stats, err := RunFile(cache.Geometry{SetBits: 0, Ways: 1, BlockBits: 0}, path, nil)

	// THEN the junk line is ignored and both loads are counted
	require.NoError(t, err)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, stats)
}

func TestNewSimulator_CacheKeepsGeometry(t *testing.T) {
	g := cache.Geometry{SetBits: 3, Ways: 2, BlockBits: 5}
	sim := NewSimulator(g)
	assert.Equal(t, g, sim.Cache.Geometry())
	assert.Equal(t, Stats{}, sim.Stats)
}
