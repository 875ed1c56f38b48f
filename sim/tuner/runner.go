package tuner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/cache-sim/cache-sim/sim"
	"github.com/cache-sim/cache-sim/sim/cache"
)

// Runner simulates one geometry against a trace.
type Runner interface {
	Run(ctx context.Context, g cache.Geometry, tracePath string) (sim.Stats, error)
	// Command renders the invocation that reproduces a run.
	Command(g cache.Geometry, tracePath string) string
}

// InProcessRunner calls the simulator directly.
type InProcessRunner struct {
	// Name is shown in place of a binary path when reporting commands.
	Name string
}

func (r InProcessRunner) Run(ctx context.Context, g cache.Geometry, tracePath string) (sim.Stats, error) {
	if err := ctx.Err(); err != nil {
		return sim.Stats{}, err
	}
	return sim.RunFile(g, tracePath, nil)
}

func (r InProcessRunner) Command(g cache.Geometry, tracePath string) string {
	name := r.Name
	if name == "" {
		name = "csim"
	}
	return fmt.Sprintf("%s %s -t %s", name, g, tracePath)
}

// ExecRunner runs a simulator binary as a subprocess and parses its
// summary line from stdout.
type ExecRunner struct {
	Binary string
}

func (r ExecRunner) args(g cache.Geometry, tracePath string) []string {
	return []string{
		"-s", strconv.Itoa(g.SetBits),
		"-E", strconv.Itoa(g.Ways),
		"-b", strconv.Itoa(g.BlockBits),
		"-t", tracePath,
	}
}

func (r ExecRunner) Run(ctx context.Context, g cache.Geometry, tracePath string) (sim.Stats, error) {
	cmd := exec.CommandContext(ctx, r.Binary, r.args(g, tracePath)...)
	out, err := cmd.Output()
	if err != nil {
		return sim.Stats{}, fmt.Errorf("running %s: %w", r.Command(g, tracePath), err)
	}
	return parseSummary(out), nil
}

func (r ExecRunner) Command(g cache.Geometry, tracePath string) string {
	return fmt.Sprintf("%s %s -t %s", r.Binary, g, tracePath)
}

// parseSummary returns the counts from the last summary line in out.
// Output without a summary line yields zero counts.
func parseSummary(out []byte) sim.Stats {
	var stats sim.Stats
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if s, err := sim.ParseStats(scanner.Text()); err == nil {
			stats = s
		}
	}
	return stats
}
