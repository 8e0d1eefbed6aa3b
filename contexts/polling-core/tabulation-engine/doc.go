// Package tabulationengine turns a poll's ballot set into aggregate results.
// Counting is a pure function of the deduplicated ballot set, so the same
// ballots always produce the same result hash, and cached results can be
// recomputed from scratch at any time.
package tabulationengine
