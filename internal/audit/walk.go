package audit

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"
)

// Entry is a filesystem object reported by Walk.
type Entry struct {
	// Path is the entry path, joined onto the root as given.
	Path string
	// IsDir reports whether the entry is a directory. Symlinks are not followed.
	IsDir bool
	// Err is set when the entry could not be read, typically a directory
	// whose listing failed. That directory was already reported without Err.
	Err *EntryError
}

// CheckRoot verifies that root exists and is a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: accessing path %q: %w", ErrPrecondition, root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: path %q is not a directory", ErrPrecondition, root)
	}

	return nil
}

// Walk visits every entry below root exactly once and calls fn for each.
//
// Directory reads are spread over workers goroutines; fn is called
// concurrently from them and must be safe for concurrent use. No order is
// guaranteed. A directory that cannot be read is reported through Entry.Err
// and does not stop the walk. Walk returns an error wrapping ErrPrecondition
// without calling fn if root is missing or not a directory.
//
// An error returned by fn stops the walk and is returned by Walk.
func Walk(ctx context.Context, root string, workers int, fn func(Entry) error) error {
	root = filepath.Clean(root)

	if err := CheckRoot(root); err != nil {
		return err
	}

	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		NumWorkers: workers,
	}

	//nolint:varnamelen // d is standard for DirEntry
	err := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fn(Entry{Path: path, IsDir: true, Err: newEntryError(path, PhaseDiscovery, err)})
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if path == root {
			return nil
		}

		return fn(Entry{Path: path, IsDir: d.IsDir()})
	})
	if err != nil {
		return err
	}

	return ctx.Err()
}
