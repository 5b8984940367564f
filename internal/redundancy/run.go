package redundancy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gotestmon/testmon/internal/config"
	"github.com/gotestmon/testmon/internal/coverage"
	"github.com/gotestmon/testmon/internal/discovery"
	"github.com/gotestmon/testmon/internal/exec"
)

// Run identifies redundant tests for cfg: it runs every discovered test
// individually under coverage, then applies SelectMinimalSet to find the
// smallest subset that keeps every target function at the configured
// coverage threshold.
func Run(ctx context.Context, moduleRoot string, cfg config.Config) (SelectionResult, error) { //nolint:gocognit // mirrors teacher's single-flow Find
	coverpkg := cfg.CoveragePackages
	if coverpkg == "" {
		coverpkg = "./..."
	}

	fmt.Println("Step 1: Identifying baseline tests...")

	baselineTestSet, err := resolveBaselineTests(ctx, cfg.BaselineTests)
	if err != nil {
		return SelectionResult{}, err
	}

	fmt.Printf("  Identified %d baseline tests\n", len(baselineTestSet))

	fmt.Println("\nStep 2: Listing all tests...")

	allTests, err := discovery.ListAll(ctx, cfg.PackageToAnalyze)
	if err != nil {
		return SelectionResult{}, fmt.Errorf("failed to list tests: %w", err)
	}

	fmt.Println("\nStep 3: Running each test individually to collect coverage...")

	testCoverageFiles, err := collectPerTestCoverage(allTests, coverpkg)
	if err != nil {
		return SelectionResult{}, err
	}

	defer func() {
		for _, f := range testCoverageFiles {
			_ = os.Remove(f)
		}
	}()

	if len(testCoverageFiles) == 0 {
		return SelectionResult{}, fmt.Errorf("no tests ran successfully")
	}

	fmt.Println("\nStep 4: Computing target coverage with all tests...")

	fm, err := coverage.BuildFunctionMap(moduleRoot)
	if err != nil {
		return SelectionResult{}, fmt.Errorf("failed to build function map: %w", err)
	}

	targetFuncs, err := targetFunctions(testCoverageFiles, fm, cfg.CoverageThreshold)
	if err != nil {
		return SelectionResult{}, err
	}

	fmt.Printf("  Target: %d functions at %.0f%%+ (with all tests)\n", len(targetFuncs), cfg.CoverageThreshold)

	fmt.Println("\nStep 5: Building minimal test set...")

	testCoverages := perTestFunctionCoverage(allTests, testCoverageFiles, fm)

	result := SelectMinimalSet(testCoverages, baselineTestSet, targetFuncs, cfg.CoverageThreshold)

	fmt.Printf("\nResults:\n  Kept tests: %d\n  Redundant tests: %d\n", len(result.KeptTests), len(result.RedundantTests))

	return result, nil
}

func resolveBaselineTests(ctx context.Context, specs []config.BaselineTestSpec) (map[string]bool, error) {
	baselineTestSet := make(map[string]bool)

	for _, spec := range specs {
		if spec.TestPattern != "" {
			fullPkg, err := exec.Output(ctx, "go", "list", spec.Package)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve package %s: %w", spec.Package, err)
			}

			baselineTestSet[strings.TrimSpace(fullPkg)+":"+spec.TestPattern] = true

			continue
		}

		pkgTests, err := discovery.List(ctx, spec.Package)
		if err != nil {
			fmt.Printf("  Warning: couldn't list tests in %s: %v\n", spec.Package, err)

			continue
		}

		for _, t := range pkgTests {
			baselineTestSet[t.QualifiedName()] = true
		}
	}

	return baselineTestSet, nil
}

func collectPerTestCoverage(tests []discovery.TestInfo, coverpkg string) (map[string]string, error) {
	files := make(map[string]string)

	var mu sync.Mutex

	numWorkers := runtime.NumCPU()
	sem := make(chan struct{}, numWorkers)

	var wg sync.WaitGroup

	var completed int32

	for _, test := range tests {
		wg.Add(1)

		go func(test discovery.TestInfo) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			coverFile := fmt.Sprintf("cov_%s_%s.out", exec.Sanitize(filepath.Base(test.Pkg)), test.Name)
			coverFileRaw := coverFile + ".raw"

			runErr := exec.RunQuietCoverage("go", "test", "-count=1",
				"-coverprofile="+coverFileRaw, "-coverpkg="+coverpkg, "-run", "^"+test.Name+"$", test.Pkg)

			current := atomic.AddInt32(&completed, 1)

			if runErr != nil {
				fmt.Printf("    [%d/%d] %s... FAILED\n", current, len(tests), test.QualifiedName())
				_ = os.Remove(coverFileRaw)

				return
			}

			if err := coverage.FilterQtpl(coverFileRaw, coverFile); err != nil {
				fmt.Printf("    [%d/%d] %s... FAILED (filter)\n", current, len(tests), test.QualifiedName())
				_ = os.Remove(coverFileRaw)

				return
			}

			_ = os.Remove(coverFileRaw)

			mu.Lock()
			files[test.QualifiedName()] = coverFile
			mu.Unlock()

			fmt.Printf("    [%d/%d] %s... OK\n", current, len(tests), test.QualifiedName())
		}(test)
	}

	wg.Wait()

	return files, nil
}

func targetFunctions(testCoverageFiles map[string]string, fm coverage.FunctionMap, threshold float64) (map[string]bool, error) {
	var paths []string
	for _, f := range testCoverageFiles {
		paths = append(paths, f)
	}

	merged := "merged_total_coverage.out"
	if err := coverage.MergeFiles(paths, merged); err != nil {
		return nil, fmt.Errorf("failed to merge total coverage: %w", err)
	}

	defer os.Remove(merged) //nolint:errcheck

	profile, err := coverage.ParseProfileFile(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to parse merged coverage: %w", err)
	}

	funcCoverage := fm.ComputeFunctionCoverage(profile)

	targets := make(map[string]bool)

	for fn, cov := range funcCoverage {
		if cov >= threshold {
			targets[fn] = true
		}
	}

	return targets, nil
}

func perTestFunctionCoverage(
	tests []discovery.TestInfo,
	testCoverageFiles map[string]string,
	fm coverage.FunctionMap,
) []TestCoverage {
	var out []TestCoverage

	for _, test := range tests {
		coverFile, ok := testCoverageFiles[test.QualifiedName()]
		if !ok {
			continue
		}

		profile, err := coverage.ParseProfileFile(coverFile)
		if err != nil {
			continue
		}

		out = append(out, TestCoverage{
			TestName: test.QualifiedName(),
			Coverage: fm.ComputeFunctionCoverage(profile),
		})
	}

	return out
}
