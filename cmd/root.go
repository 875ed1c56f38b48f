package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/cache-sim/cache-sim/sim"
	"github.com/cache-sim/cache-sim/sim/cache"
)

var (
	// CLI flags for the simulated cache
	setBits    int    // Number of set index bits (2^s sets)
	ways       int    // Associativity (lines per set)
	blockBits  int    // Number of block offset bits (2^b-byte blocks)
	tracePath  string // Valgrind trace to replay
	verbose    bool   // Print per-record hit/miss/eviction annotations
	configPath string // Optional YAML file with the settings above
	logLevel   string // Log verbosity level
)

// rootCmd simulates one cache geometry against a trace
var rootCmd = &cobra.Command{
	Use:   "csim",
	Short: "Set-associative cache simulator with LRU replacement",
	Long: "Replays a Valgrind memory trace against a cache of 2^s sets, E lines per set and 2^b-byte blocks, " +
		"and prints hit, miss and eviction counts.",
	Example: "  csim -s 4 -E 1 -b 4 -t traces/yi.trace\n  csim -v -s 1 -E 2 -b 3 -t traces/dave.trace",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		opts, err := resolveSimOptions(cmd)
		if err != nil {
			_ = cmd.Usage()
			logrus.Fatalf("%v", err)
		}
		if err := runSimulation(opts, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// SimOptions is the fully resolved input of one simulation run.
type SimOptions struct {
	Geometry cache.Geometry
	Trace    string
	Verbose  bool
}

// resolveSimOptions merges the optional config file with explicitly set flags.
// Flags win over the file.
func resolveSimOptions(cmd *cobra.Command) (SimOptions, error) {
	var opts SimOptions
	if configPath != "" {
		cfg, err := loadSimConfig(configPath)
		if err != nil {
			return SimOptions{}, err
		}
		opts = SimOptions{Geometry: cfg.Geometry, Trace: cfg.Trace, Verbose: cfg.Verbose}
	}

	flags := cmd.Flags()
	if configPath == "" || flags.Changed("set-bits") {
		opts.Geometry.SetBits = setBits
	}
	if configPath == "" || flags.Changed("ways") {
		opts.Geometry.Ways = ways
	}
	if configPath == "" || flags.Changed("block-bits") {
		opts.Geometry.BlockBits = blockBits
	}
	if configPath == "" || flags.Changed("trace") {
		opts.Trace = tracePath
	}
	if configPath == "" || flags.Changed("verbose") {
		opts.Verbose = verbose
	}

	if opts.Trace == "" {
		return SimOptions{}, fmt.Errorf("trace file not provided (-t)")
	}
	if err := opts.Geometry.Validate(); err != nil {
		return SimOptions{}, fmt.Errorf("invalid cache geometry: %w", err)
	}
	return opts, nil
}

// runSimulation replays the trace and writes the summary line to out.
// Verbose annotations, when enabled, go to out ahead of the summary.
func runSimulation(opts SimOptions, out io.Writer) error {
	startTime := time.Now()

	var verboseOut io.Writer
	if opts.Verbose {
		verboseOut = out
	}
	stats, err := sim.RunFile(opts.Geometry, opts.Trace, verboseOut)
	if err != nil {
		return err
	}
	if err := stats.Print(out); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	return nil
}

// setupLogging applies --log, exiting on an unknown level.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// registerSimFlags binds the simulation flags to cmd, resetting them to defaults.
func registerSimFlags(cmd *cobra.Command) {
	// Cache geometry
	cmd.Flags().IntVarP(&setBits, "set-bits", "s", 0, "Number of set index bits (2^s sets)")
	cmd.Flags().IntVarP(&ways, "ways", "E", 1, "Associativity (lines per set)")
	cmd.Flags().IntVarP(&blockBits, "block-bits", "b", 0, "Number of block bits (2^b-byte blocks)")

	// Input and output
	cmd.Flags().StringVarP(&tracePath, "trace", "t", "", "Valgrind trace file to replay")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print hit/miss/eviction for every trace record")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML file with geometry, trace and verbose settings; flags override it")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	registerSimFlags(rootCmd)

	// Attach `tune` as a subcommand to `root`
	rootCmd.AddCommand(tuneCmd)
}
