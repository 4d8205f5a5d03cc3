package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/idelchi/staleaudit/internal/audit"
	"github.com/idelchi/staleaudit/internal/config"
	"github.com/idelchi/staleaudit/internal/metrics"
	"github.com/idelchi/staleaudit/internal/report"
)

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func logic(ctx context.Context, cfg *config.Config, fl flags, stdout, stderr io.Writer) error {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	enableProgress := fl.summary != "json" && !fl.debug && isTerminal(stderr)

	opt := cfg.Options()
	opt.Logger = newLogger(stderr, fl.debug)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		opt.Progress = func(p audit.Progress) {
			msg := fmt.Sprintf("Scanning… %s entries, %s stale",
				humanize.Comma(p.Discovered), humanize.Comma(p.Qualifying))
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}
	}

	res, err := audit.Run(ctx, opt)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if err != nil {
		return err
	}

	writeStart := time.Now()
	writeErr := report.Emit(res.Records, cfg.Output, format)
	res.Stats.Write = time.Since(writeStart)

	summary := Summary{
		Path:    cfg.Path,
		Output:  cfg.Output,
		Format:  string(format),
		Written: writeErr == nil,
		Stats:   res.Stats,
	}

	var printErr error

	switch fl.summary {
	case "json":
		printErr = PrintJSON(summary, stdout)
	default:
		printErr = PrintTable(summary, stdout)
	}

	var metricsErr error

	if cfg.MetricsFile != "" {
		m := metrics.New()
		m.Observe(res.Stats, res.Errors, time.Now())
		metricsErr = m.WriteTextfile(cfg.MetricsFile)
	}

	return errors.Join(writeErr, printErr, metricsErr)
}
