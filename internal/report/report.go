// Package report serializes audit records to CSV or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/idelchi/staleaudit/internal/audit"
)

// Format is a report serialization format.
type Format string

const (
	// FormatCSV writes a header row followed by one row per record.
	FormatCSV Format = "csv"
	// FormatJSON writes an indented array of objects.
	FormatJSON Format = "json"
)

// Formats lists the supported formats.
//
//nolint:gochecknoglobals // Config constant
var Formats = []Format{FormatCSV, FormatJSON}

// Header is the CSV header row.
//
//nolint:gochecknoglobals // Config constant
var Header = []string{"path", "accessed"}

// ErrWriteFailure reports that the report destination could not be written.
var ErrWriteFailure = errors.New("writing report")

// WriteError wraps a failure to create or write the report destination.
type WriteError struct {
	// Path is the destination.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrWriteFailure, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWriteFailure }

// ParseFormat parses a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown report format %q: must be one of %v", s, Formats)
	}

	return f, nil
}

// Sort orders records by path.
func Sort(records []audit.Record) {
	slices.SortFunc(records, func(a, b audit.Record) int {
		return strings.Compare(a.Path, b.Path)
	})
}

// WriteCSV writes records as CSV with the path,accessed header.
// Fields containing a comma, quote or newline are quoted.
func WriteCSV(writer io.Writer, records []audit.Record) error {
	w := csv.NewWriter(writer)

	if err := w.Write(Header); err != nil {
		return err
	}

	for _, r := range records {
		if err := w.Write([]string{r.Path, r.AccessedString()}); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

type row struct {
	Path     string `json:"path"`
	Accessed string `json:"accessed"`
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(writer io.Writer, records []audit.Record) error {
	rows := make([]row, 0, len(records))
	for _, r := range records {
		rows = append(rows, row{Path: r.Path, Accessed: r.AccessedString()})
	}

	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")

	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

// Emit writes records sorted by path to dest in the given format.
// The caller's slice is left untouched. Any failure to create, write or
// close dest is returned as a *WriteError.
func Emit(records []audit.Record, dest string, format Format) (err error) {
	sorted := slices.Clone(records)
	Sort(sorted)

	file, err := os.Create(dest)
	if err != nil {
		return &WriteError{Path: dest, Err: err}
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &WriteError{Path: dest, Err: cerr}
		}
	}()

	switch format {
	case FormatJSON:
		err = WriteJSON(file, sorted)
	case FormatCSV:
		err = WriteCSV(file, sorted)
	default:
		err = fmt.Errorf("unknown report format %q", format)
	}

	if err != nil {
		return &WriteError{Path: dest, Err: err}
	}

	return nil
}
