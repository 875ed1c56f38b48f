// Package testutil provides shared test infrastructure for the cache simulator.
// It consolidates golden dataset types and assertion helpers used across
// sim/ and sim/tuner/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one trace replayed under one geometry, with the
// expected final counts.
type GoldenTestCase struct {
	Trace     string `json:"trace"`
	SetBits   int    `json:"s"`
	Ways      int    `json:"E"`
	BlockBits int    `json:"b"`
	Hits      int    `json:"hits"`
	Misses    int    `json:"misses"`
	Evictions int    `json:"evictions"`
}

// repoTestdata resolves the repo-root testdata directory relative to this
// source file: sim/internal/testutil/ → testdata/.
func repoTestdata(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata")
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	path := filepath.Join(repoTestdata(t), "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// TracePath returns the path of a trace file under testdata/traces.
func TracePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(repoTestdata(t), "traces", name)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
