package audit

import (
	"time"

	"github.com/djherbis/atime"
)

// TimeLayout is the canonical rendering of an access time, always in UTC.
const TimeLayout = "2006-01-02 15:04:05"

const secondsPerDay = 24 * 60 * 60

// Record is a single entry whose last access is older than the cutoff.
type Record struct {
	// Path is the entry path as discovered under the root.
	Path string `json:"path"`
	// Accessed is the last access time, truncated to seconds, in UTC.
	Accessed time.Time `json:"-"`
}

// AccessedString renders Accessed in TimeLayout.
func (r Record) AccessedString() string {
	return FormatAccessed(r.Accessed)
}

// FormatAccessed renders t as a UTC timestamp with second precision.
func FormatAccessed(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseAccessed is the inverse of FormatAccessed.
func ParseAccessed(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

// Classifier decides whether an entry's last access predates the cutoff.
type Classifier struct {
	// CutoffDays is the age in days an entry must exceed to qualify.
	CutoffDays int
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Boundary returns the epoch second an access time must be strictly below to qualify.
func (c Classifier) Boundary(now time.Time) int64 {
	return now.Unix() - int64(c.CutoffDays)*secondsPerDay
}

// Classify stats path and returns a Record when its access time is strictly
// older than now minus CutoffDays.
//
// A stat failure returns an *EntryError matching ErrMetadataUnavailable.
// A recently accessed entry returns an *ExcludedError matching ErrExcluded.
func (c Classifier) Classify(path string) (Record, error) {
	accessed, err := atime.Stat(path)
	if err != nil {
		return Record{}, newEntryError(path, PhaseMetadata, err)
	}

	return c.classify(path, accessed)
}

func (c Classifier) classify(path string, accessed time.Time) (Record, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	accessed = time.Unix(accessed.Unix(), 0).UTC()

	if accessed.Unix() >= c.Boundary(now()) {
		return Record{}, &ExcludedError{Path: path, Accessed: FormatAccessed(accessed)}
	}

	return Record{Path: path, Accessed: accessed}, nil
}

// IsEligible reports whether an entry is classified at all.
// Directories are always eligible; everything else only when dirsOnly is false.
func IsEligible(isDir, dirsOnly bool) bool {
	return isDir || !dirsOnly
}
