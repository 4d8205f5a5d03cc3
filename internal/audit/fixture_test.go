package audit

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"testing"
	"time"
)

// testNow is the fixed clock used by tests.
var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func daysAgo(days int) time.Time {
	return testNow.Add(-time.Duration(days) * 24 * time.Hour)
}

// node describes one entry of a fixture tree. Paths use forward slashes;
// a trailing slash marks a directory.
type node struct {
	path     string
	accessed time.Time
}

// fixture is a tree built under a temporary root.
type fixture struct {
	root  string
	nodes []node
}

// buildTree creates the nodes under a new temporary directory and applies their access times.
func buildTree(t *testing.T, nodes ...node) *fixture {
	t.Helper()

	f := &fixture{root: t.TempDir(), nodes: nodes}

	for _, n := range nodes {
		p := f.abs(n.path)
		if n.isDir() {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", p, err)
			}

			continue
		}

		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}

		if err := os.WriteFile(p, []byte(n.path), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	f.reset(t)

	return f
}

// reset reapplies the access times. Reading a directory may move its access
// time forward, so tests that walk a tree twice call reset in between.
func (f *fixture) reset(t *testing.T) {
	t.Helper()

	// Deepest first, so setting a child never disturbs an already set parent.
	nodes := slices.Clone(f.nodes)
	sort.Slice(nodes, func(i, j int) bool { return len(nodes[i].path) > len(nodes[j].path) })

	for _, n := range nodes {
		if n.accessed.IsZero() {
			continue
		}

		if err := os.Chtimes(f.abs(n.path), n.accessed, n.accessed); err != nil {
			t.Fatalf("chtimes %s: %v", n.path, err)
		}
	}
}

func (f *fixture) abs(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func (n node) isDir() bool {
	return len(n.path) > 0 && n.path[len(n.path)-1] == '/'
}

func file(path string, accessed time.Time) node { return node{path: path, accessed: accessed} }

func dir(path string, accessed time.Time) node { return node{path: path + "/", accessed: accessed} }

// paths returns the sorted record paths relative to root, in slash form.
func paths(t *testing.T, root string, records []Record) []string {
	t.Helper()

	out := make([]string, 0, len(records))

	for _, r := range records {
		rel, err := filepath.Rel(root, r.Path)
		if err != nil {
			t.Fatalf("rel %s: %v", r.Path, err)
		}

		out = append(out, filepath.ToSlash(rel))
	}

	sort.Strings(out)

	return out
}

func skipIfRoot(t *testing.T) {
	t.Helper()

	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
}
