package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

const (
	// DefaultProgressInterval is the default interval for progress updates.
	DefaultProgressInterval = 500 * time.Millisecond
	// DefaultWorkers is the default number of walker goroutines.
	DefaultWorkers = 50
	// DefaultCutoffDays is the default cutoff, three years.
	DefaultCutoffDays = 1095
)

// Progress is a point-in-time view of a running walk.
type Progress struct {
	// Discovered is the number of entries found so far.
	Discovered int64
	// Processed is the number of entries fully handled so far.
	Processed int64
	// Qualifying is the number of stale entries found so far.
	Qualifying int64
}

// Options configures an audit walk. It is read-only once Run starts.
type Options struct {
	// Path is the directory to audit.
	Path string
	// Workers is the maximum number of concurrent directory reads.
	Workers int
	// CutoffDays is the age in days an entry's last access must exceed.
	CutoffDays int
	// DirsOnly restricts classification to directories.
	DirsOnly bool
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Progress, if set, is called periodically from a separate goroutine.
	Progress func(Progress)
	// Logger receives per-entry diagnostics. Nil discards them.
	Logger *slog.Logger
	// Now overrides the clock used for classification.
	Now func() time.Time
}

// DefaultOptions returns options for auditing path with default settings.
func DefaultOptions(path string) Options {
	return Options{
		Path:             path,
		Workers:          DefaultWorkers,
		CutoffDays:       DefaultCutoffDays,
		ProgressInterval: DefaultProgressInterval,
	}
}

// Validate checks the options for values the walk cannot run with.
func (o Options) Validate() error {
	if o.Path == "" {
		return fmt.Errorf("%w: path is required", ErrPrecondition)
	}

	if o.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrPrecondition, o.Workers)
	}

	if o.CutoffDays < 0 {
		return fmt.Errorf("%w: cutoff days cannot be negative, got %d", ErrPrecondition, o.CutoffDays)
	}

	return nil
}

// Result is the outcome of a completed walk.
type Result struct {
	// Records holds the qualifying entries in no particular order.
	Records []Record
	// Errors holds the per-entry failures encountered during the walk.
	Errors []EntryError
	// Stats summarizes the walk.
	Stats *Stats
}

// startProgressReporter invokes hook on each tick until ctx is done.
// The returned function blocks until the reporter goroutine has exited.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, hook func(Progress), interval time.Duration) func() {
	if hook == nil {
		return func() {}
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(Progress{
					Discovered: c.discovered.Load(),
					Processed: c.ineligible.Load() + c.qualifying.Load() +
						c.excluded.Load() + c.metadataErrors.Load(),
					Qualifying: c.qualifying.Load(),
				})
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() { <-done }
}

// Run audits the tree at opt.Path and returns the entries whose last access
// is older than opt.CutoffDays.
//
// Entries are discovered concurrently by Walk. Each entry passes IsEligible
// and, if eligible, is classified in the goroutine that discovered it.
// Per-entry failures are logged, counted and returned in Result.Errors;
// they never abort the walk. Run fails only if the options are invalid,
// the root is missing or not a directory, or ctx is cancelled.
func Run(ctx context.Context, opt Options) (*Result, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	root := filepath.Clean(opt.Path)
	classifier := Classifier{CutoffDays: opt.CutoffDays, Now: opt.Now}
	collector := newCollector()

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	waitProgress := startProgressReporter(ctx, collector, opt.Progress, opt.ProgressInterval)

	log.Debug("starting audit",
		"path", root,
		"workers", opt.Workers,
		"cutoff_days", opt.CutoffDays,
		"dirs_only", opt.DirsOnly,
	)

	start := time.Now()

	walkErr := Walk(ctx, root, opt.Workers, func(e Entry) error {
		if e.Err != nil {
			collector.pushError(e.Err)
			log.Warn("cannot read directory", "path", e.Path, "kind", e.Err.Kind, "error", e.Err.Err)

			return nil
		}

		collector.discovered.Add(1)

		if !IsEligible(e.IsDir, opt.DirsOnly) {
			collector.ineligible.Add(1)

			return nil
		}

		collector.eligible.Add(1)

		classifyStart := time.Now()
		record, err := classifier.Classify(e.Path)
		collector.classifyNanos.Add(int64(time.Since(classifyStart)))

		var entryErr *EntryError

		switch {
		case err == nil:
			collector.push(record)
		case errors.As(err, &entryErr):
			collector.pushError(entryErr)
			log.Warn("cannot read metadata", "path", e.Path, "kind", entryErr.Kind, "error", entryErr.Err)
		default:
			collector.excluded.Add(1)
			log.Debug("excluded", "reason", err)
		}

		return nil
	})

	elapsed := time.Since(start)

	cancel()
	waitProgress()

	if walkErr != nil {
		return nil, walkErr
	}

	records, errs := collector.drain()

	stats := collector.snapshot()
	stats.Discovery = elapsed
	stats.Workers = opt.Workers
	stats.CutoffDays = opt.CutoffDays
	stats.DirsOnly = opt.DirsOnly

	log.Debug("audit finished",
		"discovered", stats.Discovered,
		"qualifying", stats.Qualifying,
		"errors", stats.Errors(),
		"elapsed", elapsed,
	)

	return &Result{Records: records, Errors: errs, Stats: stats}, nil
}
