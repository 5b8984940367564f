// Package config loads the project's `.testmon.yaml` configuration file.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// BaselineTestSpec names one test that always forms part of the baseline
// coverage set for the `redundant` subcommand's minimal-set analysis. An
// empty TestPattern runs every test in Package.
type BaselineTestSpec struct {
	Package     string `yaml:"package"`
	TestPattern string `yaml:"test_pattern"`
}

// Config is the decoded shape of `.testmon.yaml`.
type Config struct {
	// RunVariantExpression is evaluated once at run start (internal/variant)
	// to produce the string discriminator partitioning the Dependency Store.
	RunVariantExpression string `yaml:"run_variant_expression"`

	// Include/Exclude are doublestar glob patterns (relative to the project
	// root) scoping which files the Change Detector tracks.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// PackageToAnalyze is the package pattern test discovery walks (e.g.
	// "./...").
	PackageToAnalyze string `yaml:"package_to_analyze"`

	// CoveragePackages is the -coverpkg value passed to `go test`.
	CoveragePackages string `yaml:"coverage_packages"`

	// CoverageThreshold and BaselineTests configure the `redundant`
	// subcommand's minimal coverage-preserving set selection.
	CoverageThreshold float64            `yaml:"coverage_threshold"`
	BaselineTests     []BaselineTestSpec `yaml:"baseline_tests"`
}

// Default returns the configuration used when no `.testmon.yaml` is
// present: track every Go file, empty variant expression (variant "").
func Default() Config {
	return Config{
		Include:           []string{"**/*.go"},
		PackageToAnalyze:  "./...",
		CoveragePackages:  "./...",
		CoverageThreshold: 80.0,
	}
}

// Load reads and decodes the YAML configuration file at path. A missing
// file is not an error: Default() is returned instead, since
// `.testmon.yaml` is optional.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied project configuration
	if os.IsNotExist(err) {
		return Default(), nil
	}

	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}
