// Package config loads staleaudit settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/idelchi/staleaudit/internal/audit"
	"github.com/idelchi/staleaudit/internal/report"
)

// DefaultOutput is the default report destination.
const DefaultOutput = "DFS_audit.csv"

// Config holds the settings of one audit run.
type Config struct {
	// Path is the directory to audit.
	Path string `yaml:"path"`
	// Threads is the number of walker goroutines.
	Threads int `yaml:"threads"`
	// Days is the access-age cutoff.
	Days int `yaml:"days"`
	// DirsOnly restricts the audit to directories.
	DirsOnly bool `yaml:"dirs_only"`
	// Output is the report destination.
	Output string `yaml:"output"`
	// Format is the report format.
	Format string `yaml:"format"`
	// MetricsFile is an optional Prometheus textfile destination.
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Threads: audit.DefaultWorkers,
		Days:    audit.DefaultCutoffDays,
		Output:  DefaultOutput,
		Format:  string(report.FormatCSV),
	}
}

// Load reads and parses a configuration file.
// Supports environment variable expansion in values via ${VAR} syntax.
// Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}

	if c.Threads <= 0 {
		errs = append(errs, fmt.Errorf("threads must be positive, got %d", c.Threads))
	}

	if c.Days < 0 {
		errs = append(errs, fmt.Errorf("days cannot be negative, got %d", c.Days))
	}

	if c.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}

	if _, err := report.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Options converts the configuration into audit options.
func (c *Config) Options() audit.Options {
	opt := audit.DefaultOptions(c.Path)
	opt.Workers = c.Threads
	opt.CutoffDays = c.Days
	opt.DirsOnly = c.DirsOnly

	return opt
}
