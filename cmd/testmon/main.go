// Command testmon finds tests unaffected by recent source changes, skips
// them, and re-runs the rest under coverage to keep their recorded
// dependencies current. A `redundant` subcommand additionally identifies
// tests that provide no unique coverage beyond a baseline set.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gotestmon/testmon"
	"github.com/gotestmon/testmon/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args[1:]

	subcommand := "select"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		subcommand = args[0]
		args = args[1:]
	}

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := config.Load(rootDir + "/.testmon.yaml")
	if err != nil {
		return fmt.Errorf("loading .testmon.yaml: %w", err)
	}

	var recollect bool

	var variantExpr string

	// Usage: testmon [select|redundant] [--testmon] [--recollect]
	//   [--variant-expr EXPR] [--baseline pkg1,pkg2,...] [--threshold N]
	//   [--coverpkg pkgs] <package>
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--testmon":
			// no-op acceptance flag for host-runner compatibility
		case "--recollect":
			recollect = true
		case "--variant-expr":
			if i+1 >= len(args) {
				return fmt.Errorf("--variant-expr requires an argument")
			}

			i++

			variantExpr = args[i]
		case "--baseline":
			if i+1 >= len(args) {
				return fmt.Errorf("--baseline requires an argument")
			}

			i++

			for _, pkg := range strings.Split(args[i], ",") {
				pkg = strings.TrimSpace(pkg)
				if pkg != "" {
					cfg.BaselineTests = append(cfg.BaselineTests, testmon.BaselineTestSpec{Package: pkg})
				}
			}
		case "--threshold":
			if i+1 >= len(args) {
				return fmt.Errorf("--threshold requires an argument")
			}

			i++

			t, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return fmt.Errorf("invalid threshold: %w", err)
			}

			cfg.CoverageThreshold = t
		case "--coverpkg":
			if i+1 >= len(args) {
				return fmt.Errorf("--coverpkg requires an argument")
			}

			i++

			cfg.CoveragePackages = args[i]
		default:
			if strings.HasPrefix(args[i], "-") {
				return fmt.Errorf("unknown flag: %s", args[i])
			}

			cfg.PackageToAnalyze = args[i]
		}
	}

	if variantExpr != "" {
		cfg.RunVariantExpression = variantExpr
	}

	if cfg.PackageToAnalyze == "" {
		cfg.PackageToAnalyze = "./..."
	}

	if cfg.CoveragePackages == "" {
		cfg.CoveragePackages = "./..."
	}

	ctx := context.Background()

	switch subcommand {
	case "select":
		return runSelect(ctx, rootDir, cfg, recollect)
	case "redundant":
		return runRedundant(ctx, rootDir, cfg)
	default:
		return fmt.Errorf("unknown subcommand: %s", subcommand)
	}
}

func runSelect(ctx context.Context, rootDir string, cfg config.Config, recollect bool) error {
	result, err := testmon.Select(ctx, rootDir, cfg, recollect)
	if err != nil {
		return err
	}

	fmt.Printf("\nResults:\n  Total tests: %d\n  Ran: %d\n  Skipped (unaffected): %d\n",
		result.TotalTests, result.SelectedTests, result.UnaffectedTests)

	if len(result.FailedTests) > 0 {
		fmt.Printf("  Failed: %d\n", len(result.FailedTests))

		for _, name := range result.FailedTests {
			fmt.Printf("    %s\n", name)
		}

		return fmt.Errorf("%d test(s) failed", len(result.FailedTests))
	}

	return nil
}

func runRedundant(ctx context.Context, rootDir string, cfg config.Config) error {
	fmt.Println("Finding redundant tests...")
	fmt.Println()

	_, err := testmon.Redundant(ctx, rootDir, cfg)

	return err
}
