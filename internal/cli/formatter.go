package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/staleaudit/internal/audit"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// Summary describes a finished audit run for display.
type Summary struct {
	// Path is the audited root.
	Path string `json:"path"`
	// Output is the report destination.
	Output string `json:"output"`
	// Format is the report format.
	Format string `json:"format"`
	// Written reports whether the report was written successfully.
	Written bool `json:"written"`
	// Stats are the walk statistics.
	Stats *audit.Stats `json:"stats"`
}

// PrintJSON outputs the summary in JSON format.
func PrintJSON(summary Summary, writer io.Writer) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintTable outputs the summary in human-readable table format.
//
//nolint:forbidigo // This function prints output to the console.
func PrintTable(summary Summary, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)
	stats := summary.Stats

	mode := "files and directories"
	if stats.DirsOnly {
		mode = "directories only"
	}

	fmt.Fprintln(w, "\nAudit:\t\t")
	fmt.Fprintf(w, "Path:\t%s\n", summary.Path)
	fmt.Fprintf(w, "Cutoff:\t%d days\n", stats.CutoffDays)
	fmt.Fprintf(w, "Mode:\t%s\n", mode)
	fmt.Fprintf(w, "Workers:\t%d\n", stats.Workers)

	fmt.Fprintln(w, "\nStats:\t\t")
	fmt.Fprintf(w, "Entries walked:\t%s\n", humanize.Comma(stats.Discovered))
	fmt.Fprintf(w, "Untouched entries:\t%s\n", humanize.Comma(stats.Qualifying))
	fmt.Fprintf(w, "Recently accessed:\t%s\n", humanize.Comma(stats.Excluded))

	if stats.DirsOnly {
		fmt.Fprintf(w, "Skipped files:\t%s\n", humanize.Comma(stats.Ineligible))
	}

	fmt.Fprintf(w, "Unreadable directories:\t%s\n", humanize.Comma(stats.DiscoveryErrors))
	fmt.Fprintf(w, "Metadata errors:\t%s\n", humanize.Comma(stats.MetadataErrors))

	fmt.Fprintln(w, "\nElapsed:\t\t")
	fmt.Fprintf(w, "Processing:\t%v\n", stats.Discovery)
	fmt.Fprintf(w, "Classifying (all workers):\t%v\n", stats.Classification)
	fmt.Fprintf(w, "Writing output:\t%v\n", stats.Write)
	fmt.Fprintf(w, "Total:\t%v\n", stats.Total())

	status := "written"
	if !summary.Written {
		status = "FAILED"
	}

	fmt.Fprintf(w, "\nReport:\t%s (%s, %s)\n", summary.Output, summary.Format, status)

	return w.Flush()
}
