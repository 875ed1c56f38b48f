package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cache-sim/cache-sim/sim/tuner"
)

var (
	// CLI flags for the geometry sweep
	tuneMetric string  // h, m or e
	tuneTarget float64 // Target rate in percent
	tuneBinary string  // Simulator binary; empty runs in-process
	tuneTrace  string  // Trace fed to every candidate
	tuneRecord string  // SQLite database receiving every candidate
)

// tuneCmd searches cache geometries for the best rate meeting a target
var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Search cache geometries for the best hit, miss or eviction rate",
	Long: "Runs the trace under every geometry with 2^s <= 32 sets, E <= 4 ways and 2^b <= 32-byte blocks. " +
		"Keeps the highest hit rate at or above the target, or the lowest miss/eviction rate at or below it.",
	Example: "  csim tune -p h -r 80 -t traces/yi.trace\n  csim tune -p e -r 5 -b ./csim-ref -t traces/trans.trace",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := tuneConfigFromFlags()
		if err != nil {
			_ = cmd.Usage()
			logrus.Fatalf("Error: missing or invalid argument(s): %v", err)
		}
		if err := runTune(cmd.Context(), cfg, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func tuneConfigFromFlags() (tuner.Config, error) {
	metric, err := tuner.ParseMetric(tuneMetric)
	if err != nil {
		return tuner.Config{}, err
	}
	cfg := tuner.Config{Metric: metric, Target: tuneTarget, Trace: tuneTrace}
	return cfg, cfg.Validate()
}

// newRunner picks subprocess or in-process simulation.
func newRunner(binary string) tuner.Runner {
	if binary != "" {
		return tuner.ExecRunner{Binary: binary}
	}
	return tuner.InProcessRunner{Name: os.Args[0]}
}

func runTune(ctx context.Context, cfg tuner.Config, out io.Writer) error {
	var recorder tuner.Recorder
	if tuneRecord != "" {
		r, err := tuner.NewSQLiteRecorder(tuneRecord)
		if err != nil {
			return err
		}
		logrus.Infof("Recording candidates to %s (run %s)", tuneRecord, r.RunID())
		recorder = r
	}
	t := tuner.New(newRunner(tuneBinary), recorder)
	defer func() {
		if err := t.Recorder.Close(); err != nil {
			logrus.Warnf("closing recorder: %v", err)
		}
	}()

	res, err := t.Search(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sweep aborted: %w", err)
	}
	logrus.Infof("Evaluated %d geometries", res.Evaluated)
	return res.Report(out)
}

// registerTuneFlags binds the sweep flags to cmd, resetting them to defaults.
func registerTuneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&tuneMetric, "metric", "p", "", "Metric to optimize: h = hit rate, m = miss rate, e = eviction rate")
	cmd.Flags().Float64VarP(&tuneTarget, "rate", "r", -1, "Target rate between 0.00 and 100.00")
	cmd.Flags().StringVarP(&tuneBinary, "binary", "b", "", "Path to a csim binary to run per candidate (default: simulate in-process)")
	cmd.Flags().StringVarP(&tuneTrace, "trace", "t", "", "Valgrind trace file to feed to every candidate")
	cmd.Flags().StringVar(&tuneRecord, "record", "", "SQLite database to record every candidate into")
}

func init() {
	registerTuneFlags(tuneCmd)
}
