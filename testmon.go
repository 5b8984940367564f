// Package testmon finds tests unaffected by recent source changes and
// skips them, and can additionally identify tests that are redundant given
// a coverage threshold over a baseline set. This package can be used in any
// Go repository by providing appropriate configuration.
package testmon

import (
	"context"

	"github.com/gotestmon/testmon/internal/config"
	"github.com/gotestmon/testmon/internal/orchestrator"
	"github.com/gotestmon/testmon/internal/redundancy"
)

// BaselineTestSpec specifies a baseline test for redundancy analysis.
type BaselineTestSpec = config.BaselineTestSpec

// Config configures a testmon run.
type Config = config.Config

// SelectionResult reports the outcome of Select: tests that were skipped as
// unaffected, and tests that ran under coverage and had their dependencies
// refreshed.
type SelectionResult struct {
	Variant         string
	TotalTests      int
	SelectedTests   int
	UnaffectedTests int
	FailedTests     []string
}

// Select runs change-impact analysis over rootDir: tests unaffected by
// source changes since the last run are skipped, and the rest run under
// coverage with their dependencies persisted to the Dependency Store.
//
// recollect ignores any stored dependencies and records fresh data for
// every discovered test, equivalent to the `--recollect` CLI flag.
func Select(ctx context.Context, rootDir string, cfg Config, recollect bool) (SelectionResult, error) {
	summary, err := orchestrator.Run(ctx, rootDir, cfg, recollect)
	if err != nil {
		return SelectionResult{}, err
	}

	return SelectionResult{
		Variant:         summary.Variant,
		TotalTests:      summary.TotalTests,
		SelectedTests:   summary.SelectedTests,
		UnaffectedTests: summary.UnaffectedTests,
		FailedTests:     summary.FailedTests,
	}, nil
}

// Redundant identifies unit tests that don't provide unique coverage beyond
// the configured baseline tests, using moduleRoot to resolve source
// function bounds.
func Redundant(ctx context.Context, moduleRoot string, cfg Config) (redundancy.SelectionResult, error) {
	return redundancy.Run(ctx, moduleRoot, cfg)
}
