package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func runOptions(root string) Options {
	opt := DefaultOptions(root)
	opt.Now = fixedNow

	return opt
}

func mustRun(t *testing.T, opt Options) *Result {
	t.Helper()

	res, err := Run(context.Background(), opt)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	return res
}

func TestRunStaleFileOnly(t *testing.T) {
	f := buildTree(t,
		file("a", daysAgo(2000)),
		file("b", daysAgo(10)),
	)

	res := mustRun(t, runOptions(f.root))

	if diff := cmp.Diff([]string{"a"}, paths(t, f.root, res.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	if got := res.Records[0].AccessedString(); got != FormatAccessed(daysAgo(2000)) {
		t.Errorf("accessed = %q, want %q", got, FormatAccessed(daysAgo(2000)))
	}
}

func TestRunDirsOnly(t *testing.T) {
	f := buildTree(t,
		file("stale-file", daysAgo(2000)),
		dir("stale-dir", daysAgo(2000)),
	)

	opt := runOptions(f.root)
	opt.DirsOnly = true

	res := mustRun(t, opt)

	if diff := cmp.Diff([]string{"stale-dir"}, paths(t, f.root, res.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	if res.Stats.Ineligible != 1 {
		t.Errorf("Ineligible = %d, want 1", res.Stats.Ineligible)
	}

	if res.Stats.Eligible != 1 {
		t.Errorf("Eligible = %d, want 1", res.Stats.Eligible)
	}
}

func TestRunMissingRoot(t *testing.T) {
	opt := runOptions(filepath.Join(t.TempDir(), "missing"))

	res, err := Run(context.Background(), opt)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}

	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

func TestRunPermissionDeniedSubtree(t *testing.T) {
	skipIfRoot(t)

	f := buildTree(t,
		file("stale", daysAgo(2000)),
		file("fresh", daysAgo(1)),
		file("locked/hidden", daysAgo(2000)),
		dir("locked", daysAgo(1)),
		file("open/old", daysAgo(3000)),
		dir("open", daysAgo(1)),
	)

	if err := os.Chmod(f.abs("locked"), 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	t.Cleanup(func() { _ = os.Chmod(f.abs("locked"), 0o755) })

	var logs bytes.Buffer

	opt := runOptions(f.root)
	opt.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	res := mustRun(t, opt)

	if diff := cmp.Diff([]string{"open/old", "stale"}, paths(t, f.root, res.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	if res.Stats.DiscoveryErrors != 1 {
		t.Errorf("DiscoveryErrors = %d, want 1", res.Stats.DiscoveryErrors)
	}

	if len(res.Errors) != 1 || res.Errors[0].Kind != KindPermission {
		t.Fatalf("Errors = %+v, want one permission error", res.Errors)
	}

	if !strings.Contains(logs.String(), "cannot read directory") {
		t.Errorf("expected discovery error to be logged, got:\n%s", logs.String())
	}
}

func TestRunBrokenSymlink(t *testing.T) {
	f := buildTree(t, file("stale", daysAgo(2000)))

	if err := os.Symlink(f.abs("nowhere"), f.abs("dangling")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	res := mustRun(t, runOptions(f.root))

	if diff := cmp.Diff([]string{"stale"}, paths(t, f.root, res.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	if res.Stats.MetadataErrors != 1 {
		t.Errorf("MetadataErrors = %d, want 1", res.Stats.MetadataErrors)
	}

	if len(res.Errors) != 1 || !errors.Is(&res.Errors[0], ErrMetadataUnavailable) {
		t.Errorf("Errors = %+v, want one metadata error", res.Errors)
	}

	if res.Errors[0].Kind != KindNotExist {
		t.Errorf("Kind = %v, want %v", res.Errors[0].Kind, KindNotExist)
	}
}

// wideTree builds a tree with a mix of stale and fresh files and directories
// and returns it with the relative paths expected to qualify.
func wideTree(t *testing.T) (*fixture, []string) {
	t.Helper()

	var (
		nodes []node
		want  []string
	)

	for d := range 12 {
		dirPath := fmt.Sprintf("d%02d", d)
		dirAge := 5

		if d%3 == 0 {
			dirAge = 1500
			want = append(want, dirPath)
		}

		for i := range 15 {
			p := fmt.Sprintf("%s/sub%d/f%02d", dirPath, i%3, i)
			age := 20

			if i%2 == 0 {
				age = 1200
				want = append(want, p)
			}

			nodes = append(nodes, file(p, daysAgo(age)))
		}

		for s := range 3 {
			nodes = append(nodes, dir(fmt.Sprintf("%s/sub%d", dirPath, s), daysAgo(1)))
		}

		nodes = append(nodes, dir(dirPath, daysAgo(dirAge)))
	}

	slices.Sort(want)

	return buildTree(t, nodes...), want
}

func TestRunWorkerCountsAgree(t *testing.T) {
	f, want := wideTree(t)

	for _, workers := range []int{1, 8, 256} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			f.reset(t)

			opt := runOptions(f.root)
			opt.Workers = workers

			res := mustRun(t, opt)

			if diff := cmp.Diff(want, paths(t, f.root, res.Records)); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}

			if res.Stats.Workers != workers {
				t.Errorf("Stats.Workers = %d, want %d", res.Stats.Workers, workers)
			}
		})
	}
}

func TestRunIdempotent(t *testing.T) {
	f, _ := wideTree(t)

	first := mustRun(t, runOptions(f.root))

	f.reset(t)

	second := mustRun(t, runOptions(f.root))

	if diff := cmp.Diff(paths(t, f.root, first.Records), paths(t, f.root, second.Records)); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestRunCompleteness(t *testing.T) {
	f, want := wideTree(t)

	res := mustRun(t, runOptions(f.root))
	s := res.Stats

	// 12 top-level directories, 3 subdirectories and 15 files each.
	const entries = 12 * (1 + 3 + 15)

	if s.Discovered != entries {
		t.Errorf("Discovered = %d, want %d", s.Discovered, entries)
	}

	if got := s.Qualifying + s.Excluded + s.Ineligible + s.MetadataErrors; got != s.Discovered {
		t.Errorf("qualifying+excluded+ineligible+errors = %d, want %d", got, s.Discovered)
	}

	if s.Qualifying != int64(len(want)) || len(res.Records) != len(want) {
		t.Errorf("Qualifying = %d, records = %d, want %d", s.Qualifying, len(res.Records), len(want))
	}

	if s.Discovery <= 0 {
		t.Errorf("Discovery = %v, want > 0", s.Discovery)
	}
}

func TestRunInvalidOptions(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"empty path", func(o *Options) { o.Path = "" }},
		{"zero workers", func(o *Options) { o.Workers = 0 }},
		{"negative workers", func(o *Options) { o.Workers = -1 }},
		{"negative days", func(o *Options) { o.CutoffDays = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := runOptions(root)
			tt.mutate(&opt)

			if _, err := Run(context.Background(), opt); !errors.Is(err, ErrPrecondition) {
				t.Errorf("expected ErrPrecondition, got %v", err)
			}
		})
	}
}

func TestRunProgressStopsWithRun(t *testing.T) {
	f, _ := wideTree(t)

	var calls atomic.Int64

	opt := runOptions(f.root)
	opt.ProgressInterval = time.Millisecond
	opt.Progress = func(Progress) { calls.Add(1) }

	mustRun(t, opt)

	after := calls.Load()

	time.Sleep(20 * time.Millisecond)

	if got := calls.Load(); got != after {
		t.Errorf("progress hook called %d times after Run returned", got-after)
	}
}

func TestCollectorConcurrentPush(t *testing.T) {
	c := newCollector()

	var wg sync.WaitGroup

	for w := range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 100 {
				c.push(Record{Path: fmt.Sprintf("%d/%d", w, i)})
			}
		}()
	}

	wg.Wait()

	records, _ := c.drain()
	if len(records) != 3200 {
		t.Fatalf("drained %d records, want 3200", len(records))
	}

	unique := make(map[string]struct{}, len(records))
	for _, r := range records {
		unique[r.Path] = struct{}{}
	}

	if len(unique) != 3200 {
		t.Errorf("found %d unique paths, want 3200", len(unique))
	}

	if got := c.snapshot().Qualifying; got != 3200 {
		t.Errorf("Qualifying = %d, want 3200", got)
	}
}

func TestCollectorPushAfterDrainPanics(t *testing.T) {
	c := newCollector()
	c.drain()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on push after drain")
		}
	}()

	c.push(Record{Path: "late"})
}
