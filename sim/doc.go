// Package sim replays memory traces against a simulated set-associative cache.
//
// # Reading Guide
//
// Start with these files to understand the simulation:
//   - cache/cache.go: cache lines, per-set recency aging and LRU victim selection
//   - trace/reader.go: lazy parsing of Valgrind lackey trace lines
//   - simulator.go: the replay loop, including the two-access modify
//
// # Architecture
//
// The sim package owns the replay loop and result counting; the pieces it
// drives live in sub-packages:
//   - sim/cache/: geometry, address decoding, cache state
//   - sim/trace/: trace records and the trace reader
//   - sim/tuner/: geometry sweeps against a target hit, miss or eviction rate
//
// A Simulator owns its Cache and Stats outright. Nothing is shared between
// runs, and a replay of the same trace under the same geometry always
// produces the same counts.
package sim
