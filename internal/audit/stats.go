package audit

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds aggregate statistics for an audit walk.
type Stats struct {
	// Discovered is the number of entries found below the root.
	Discovered int64 `json:"discovered"`
	// Eligible is the number of entries that passed the eligibility policy.
	Eligible int64 `json:"eligible"`
	// Ineligible is the number of entries skipped by the eligibility policy.
	Ineligible int64 `json:"ineligible"`
	// Qualifying is the number of entries accessed before the cutoff.
	Qualifying int64 `json:"qualifying"`
	// Excluded is the number of entries accessed within the cutoff.
	Excluded int64 `json:"excluded"`
	// DiscoveryErrors is the number of directories that could not be read.
	DiscoveryErrors int64 `json:"discovery_errors"`
	// MetadataErrors is the number of entries that could not be stat'ed.
	MetadataErrors int64 `json:"metadata_errors"`
	// Discovery is the wall time of the concurrent walk, classification included.
	Discovery time.Duration `json:"discovery"`
	// Classification is the time spent classifying, summed over all workers.
	Classification time.Duration `json:"classification"`
	// Write is the time taken to write the report. Set by the caller.
	Write time.Duration `json:"write"`
	// Workers is the worker count used for the walk.
	Workers int `json:"workers"`
	// CutoffDays is the cutoff used for the walk.
	CutoffDays int `json:"cutoff_days"`
	// DirsOnly indicates whether only directories were classified.
	DirsOnly bool `json:"dirs_only"`
}

// Errors returns the total number of per-entry errors.
func (s *Stats) Errors() int64 {
	return s.DiscoveryErrors + s.MetadataErrors
}

// Total returns the time spent walking and writing.
func (s *Stats) Total() time.Duration {
	return s.Discovery + s.Write
}

// collector aggregates records from concurrent fastwalk callbacks.
// The record and error buffers are guarded by mu; counters are atomic.
type collector struct {
	mu      sync.Mutex // Protect records, errors and drained
	records []Record
	errors  []EntryError
	drained bool

	discovered      atomic.Int64
	eligible        atomic.Int64
	ineligible      atomic.Int64
	qualifying      atomic.Int64
	excluded        atomic.Int64
	discoveryErrors atomic.Int64
	metadataErrors  atomic.Int64
	classifyNanos   atomic.Int64
}

func newCollector() *collector {
	return &collector{records: make([]Record, 0)}
}

// push stores a qualifying record. It panics if called after drain.
func (c *collector) push(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drained {
		panic("audit: push after drain")
	}

	c.records = append(c.records, r)
	c.qualifying.Add(1)
}

// pushError stores a per-entry error and counts it by phase.
func (c *collector) pushError(e *EntryError) {
	c.mu.Lock()
	c.errors = append(c.errors, *e)
	c.mu.Unlock()

	if e.Phase == PhaseDiscovery {
		c.discoveryErrors.Add(1)
	} else {
		c.metadataErrors.Add(1)
	}
}

// drain hands over the collected records and errors.
// It must only be called once the walk has returned.
func (c *collector) drain() ([]Record, []EntryError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drained = true

	records, errs := c.records, c.errors
	c.records, c.errors = nil, nil

	return records, errs
}

// snapshot produces Stats from the current counters.
func (c *collector) snapshot() *Stats {
	return &Stats{
		Discovered:      c.discovered.Load(),
		Eligible:        c.eligible.Load(),
		Ineligible:      c.ineligible.Load(),
		Qualifying:      c.qualifying.Load(),
		Excluded:        c.excluded.Load(),
		DiscoveryErrors: c.discoveryErrors.Load(),
		MetadataErrors:  c.metadataErrors.Load(),
		Classification:  time.Duration(c.classifyNanos.Load()),
	}
}
