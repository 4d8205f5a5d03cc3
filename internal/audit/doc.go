// Package audit finds filesystem entries whose last access is older than a cutoff.
//
// It walks directory trees using fastwalk for parallel traversal,
// classifies each eligible entry by its access time, and collects the
// stale entries into an unordered set of records together with walk
// statistics. The package writes nothing to the console.
package audit
