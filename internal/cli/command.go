package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/idelchi/staleaudit/internal/config"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// allowedSummaries lists the formats accepted by --summary.
//
//nolint:gochecknoglobals // Config constant
var allowedSummaries = []string{"table", "json"}

// flags holds values that only exist on the command line.
type flags struct {
	configFile string
	summary    string
	debug      bool
}

// Execute runs the CLI with the process arguments.
// SIGINT and SIGTERM cancel a running audit.
func (c CLI) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.command().ExecuteContext(ctx)
}

func (c CLI) command() *cobra.Command {
	var (
		cfg = config.Default()
		fl  flags
	)

	cmd := &cobra.Command{
		Use:   "staleaudit [flags] [path]",
		Short: "Report files and directories not accessed within a cutoff",
		Long: heredoc.Doc(`
			staleaudit walks a directory tree in parallel and reports every entry whose
			last access time is older than the cutoff.

			The report is written as CSV (path,accessed) or JSON, sorted by path.
			Timestamps are rendered in UTC as 'YYYY-MM-DD HH:MM:SS'.

			Entries that cannot be read are logged to stderr and skipped; they do not
			fail the run. A missing root or a report that cannot be written does.

			Flags given on the command line take precedence over values read from --config.
		`),
		Example: heredoc.Doc(`
			# Files and directories not accessed in three years
			staleaudit /srv/share

			# Directories untouched for a year, 128 workers
			staleaudit -p /srv/share -d 365 -t 128 --dirs-only -o stale-dirs.csv
		`),
		Version:       c.version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolve(cmd, cfg, fl.configFile, args)
			if err != nil {
				return err
			}

			if !slices.Contains(allowedSummaries, fl.summary) {
				return fmt.Errorf("invalid summary format %q: must be one of %v", fl.summary, allowedSummaries)
			}

			return logic(cmd.Context(), resolved, fl, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.SortFlags = false

	f.StringVarP(&cfg.Path, "path", "p", "", "Directory to audit (may also be given as argument)")
	f.IntVarP(&cfg.Threads, "threads", "t", cfg.Threads, "Number of concurrent walker goroutines")
	f.IntVarP(&cfg.Days, "days", "d", cfg.Days, "Report entries not accessed within this many days")
	f.BoolVar(&cfg.DirsOnly, "dirs-only", cfg.DirsOnly, "Only report directories")
	f.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Report destination")
	f.StringVarP(&cfg.Format, "format", "f", cfg.Format, "Report format: csv or json")
	f.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics for the run to this file")
	f.StringVarP(&fl.configFile, "config", "c", "", "YAML configuration file")
	f.StringVarP(&fl.summary, "summary", "s", "table", "Summary format on stdout: table or json")
	f.BoolVar(&fl.debug, "debug", false, "Enable debug output")

	return cmd
}

// resolve merges the configuration file, explicitly set flags and the
// positional path, in increasing order of precedence, and validates the result.
func resolve(cmd *cobra.Command, fromFlags *config.Config, configFile string, args []string) (*config.Config, error) {
	cfg := fromFlags

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}

		f := cmd.Flags()

		overrides := map[string]func(){
			"path":         func() { loaded.Path = fromFlags.Path },
			"threads":      func() { loaded.Threads = fromFlags.Threads },
			"days":         func() { loaded.Days = fromFlags.Days },
			"dirs-only":    func() { loaded.DirsOnly = fromFlags.DirsOnly },
			"output":       func() { loaded.Output = fromFlags.Output },
			"format":       func() { loaded.Format = fromFlags.Format },
			"metrics-file": func() { loaded.MetricsFile = fromFlags.MetricsFile },
		}

		for name, apply := range overrides {
			if f.Changed(name) {
				apply()
			}
		}

		cfg = loaded
	}

	if len(args) == 1 {
		if cmd.Flags().Changed("path") && fromFlags.Path != args[0] {
			return nil, fmt.Errorf("path given both as --path %q and argument %q", fromFlags.Path, args[0])
		}

		cfg.Path = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
