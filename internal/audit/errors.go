package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

var (
	// ErrPrecondition reports that the walk could not start, such as a missing root.
	ErrPrecondition = errors.New("precondition failed")
	// ErrMetadataUnavailable reports that an entry was discovered but could not be stat'ed.
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	// ErrExcluded reports that an entry was accessed within the retained window.
	ErrExcluded = errors.New("accessed within cutoff")
)

// ErrorKind tags the cause of a per-entry failure.
type ErrorKind int

const (
	// KindOther is any failure not covered by a more specific kind.
	KindOther ErrorKind = iota
	// KindPermission means access was denied.
	KindPermission
	// KindNotExist means the entry vanished, or a symlink target is missing.
	KindNotExist
	// KindLoop means the OS rejected a symlink cycle.
	KindLoop
)

// String returns the kind as used in logs and metric labels.
func (k ErrorKind) String() string {
	switch k {
	case KindPermission:
		return "permission"
	case KindNotExist:
		return "not_exist"
	case KindLoop:
		return "loop"
	default:
		return "other"
	}
}

// KindOf derives the ErrorKind of err.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	case errors.Is(err, fs.ErrNotExist):
		return KindNotExist
	case errors.Is(err, syscall.ELOOP):
		return KindLoop
	default:
		return KindOther
	}
}

// Phase names where a per-entry error occurred.
type Phase string

const (
	// PhaseDiscovery is a failure while reading a directory.
	PhaseDiscovery Phase = "discovery"
	// PhaseMetadata is a failure while reading an entry's metadata.
	PhaseMetadata Phase = "metadata"
)

// EntryError is a non-fatal failure attached to a single entry.
type EntryError struct {
	// Path is the entry the failure belongs to.
	Path string `json:"path"`
	// Phase is where the failure occurred.
	Phase Phase `json:"phase"`
	// Kind is the tagged cause, computed once when the error is created.
	Kind ErrorKind `json:"kind"`
	// Err is the underlying error.
	Err error `json:"-"`
}

func newEntryError(path string, phase Phase, err error) *EntryError {
	return &EntryError{Path: path, Phase: phase, Kind: KindOf(err), Err: err}
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s %q (%s): %v", e.Phase, e.Path, e.Kind, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// Is matches ErrMetadataUnavailable for metadata-phase failures.
func (e *EntryError) Is(target error) bool {
	return target == ErrMetadataUnavailable && e.Phase == PhaseMetadata
}

// ExcludedError is returned by Classify for entries accessed within the cutoff.
// It is an expected outcome rather than a failure.
type ExcludedError struct {
	// Path is the classified entry.
	Path string
	// Accessed is the rendered access timestamp.
	Accessed string
}

func (e *ExcludedError) Error() string {
	return fmt.Sprintf("%q accessed at %s", e.Path, e.Accessed)
}

func (e *ExcludedError) Is(target error) bool { return target == ErrExcluded }

// MarshalText encodes the kind by name.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
