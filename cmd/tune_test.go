package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cache-sim/cache-sim/sim/tuner"
)

func parseTuneFlags(t *testing.T, args ...string) {
	t.Helper()
	c := &cobra.Command{Use: "tune"}
	registerTuneFlags(c)
	require.NoError(t, c.ParseFlags(args))
}

func TestTuneConfigFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"valid", []string{"-p", "h", "-r", "80", "-t", yiTrace}, false},
		{"missing metric", []string{"-r", "80", "-t", yiTrace}, true},
		{"bad metric", []string{"-p", "q", "-r", "80", "-t", yiTrace}, true},
		{"missing rate", []string{"-p", "m", "-t", yiTrace}, true},
		{"missing trace", []string{"-p", "e", "-r", "5"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parseTuneFlags(t, tt.args...)
			_, err := tuneConfigFromFlags()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRunner_BinarySelectsSubprocess(t *testing.T) {
	assert.Equal(t, tuner.ExecRunner{Binary: "./csim-ref"}, newRunner("./csim-ref"))
	assert.IsType(t, tuner.InProcessRunner{}, newRunner(""))
}

func TestRunTune_InProcess_ReportsBestAndRecords(t *testing.T) {
	// GIVEN a hit-rate sweep over the yi trace with recording enabled
	db := filepath.Join(t.TempDir(), "sweep.sqlite3")
	parseTuneFlags(t, "-p", "h", "-r", "40", "-t", yiTrace, "--record", db)
	cfg, err := tuneConfigFromFlags()
	require.NoError(t, err)

	// WHEN the sweep runs
	var out bytes.Buffer
	require.NoError(t, runTune(context.Background(), cfg, &out))

	// THEN two lines are printed: the command and its summary
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "-t "+yiTrace)
	assert.True(t, strings.HasPrefix(lines[1], "hits:"), "got %q", lines[1])

	// AND the database holds the sweep
	conn, err := sql.Open("sqlite3", db)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM candidates`).Scan(&n))
	assert.Greater(t, n, 0)
}

func TestRunTune_NoCandidate_NotFound(t *testing.T) {
	parseTuneFlags(t, "-p", "h", "-r", "50", "-t", "../testdata/traces/fetch.trace")
	cfg, err := tuneConfigFromFlags()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runTune(context.Background(), cfg, &out))
	assert.Equal(t, "No valid configuration found\n", out.String())
}
