package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cache-sim/cache-sim/sim/cache"
)

// SimConfig represents a simulation config file, e.g.
//
//	geometry: {s: 4, E: 1, b: 4}
//	trace: traces/yi.trace
//	verbose: true
//
// Unknown keys are rejected so typos surface as errors.
type SimConfig struct {
	Geometry cache.Geometry `yaml:"geometry"`
	Trace    string         `yaml:"trace"`
	Verbose  bool           `yaml:"verbose"`
}

// loadSimConfig parses a simulation config file with strict field checking.
func loadSimConfig(path string) (SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SimConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg SimConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return SimConfig{}, fmt.Errorf("parsing config YAML %s: %w", path, err)
	}
	return cfg, nil
}
