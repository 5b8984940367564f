// Package orchestrator drives one test-impact-analyzed run: determine which
// tests are unaffected by source changes, run the rest under coverage, and
// persist their updated dependencies.
package orchestrator

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gotestmon/testmon/internal/block"
	"github.com/gotestmon/testmon/internal/config"
	"github.com/gotestmon/testmon/internal/coverage"
	"github.com/gotestmon/testmon/internal/discovery"
	"github.com/gotestmon/testmon/internal/exec"
	"github.com/gotestmon/testmon/internal/scratch"
	"github.com/gotestmon/testmon/internal/solver"
	"github.com/gotestmon/testmon/internal/sourcetree"
	"github.com/gotestmon/testmon/internal/store"
	"github.com/gotestmon/testmon/internal/variant"
)

// dataFileName is the Dependency Store's filename, relative to the project
// root.
const dataFileName = ".testmondata"

// Summary reports the outcome of one Run.
type Summary struct {
	Variant         string
	TotalTests      int
	SelectedTests   int
	UnaffectedTests int
	FailedTests     []string
}

// Run discovers every test under cfg.PackageToAnalyze, determines which are
// unaffected by source changes since the last run, executes the rest under
// coverage, and persists their updated dependencies — spec.md §4.7's
// Orchestrator, end to end.
//
// recollect, when true, ignores stored dependencies and records fresh data
// for every discovered test (the `--recollect` CLI flag).
func Run(ctx context.Context, rootDir string, cfg config.Config, recollect bool) (*Summary, error) {
	v := variant.Eval(ctx, cfg.RunVariantExpression)

	dataPath := filepath.Join(rootDir, dataFileName)

	db, err := store.Open(ctx, dataPath, v)
	if err != nil {
		return nil, fmt.Errorf("opening dependency store: %w", err)
	}
	defer db.Close() //nolint:errcheck // best effort on shutdown

	tree := sourcetree.New(rootDir, cfg.Include, cfg.Exclude)

	paths, err := tree.Discover()
	if err != nil {
		return nil, fmt.Errorf("discovering tracked files: %w", err)
	}

	priorState, err := db.ReadSourceTreeState(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading prior source tree state: %w", err)
	}

	for _, p := range paths {
		if prior, ok := priorState[p]; ok {
			tree.Seed(p, prior.ModTime, parseSHA1(prior.ContentSHA1))
		} else if err := tree.Track(p); err != nil {
			return nil, fmt.Errorf("tracking %s: %w", p, err)
		}
	}

	// Files recorded last run that are now gone from disk are seeded too, so
	// Changed() reports them as vanished and their dependents are re-selected.
	for p, prior := range priorState {
		if _, tracked := tree.Fingerprint(p); tracked {
			continue
		}

		if _, statErr := os.Stat(filepath.Join(rootDir, p)); os.IsNotExist(statErr) {
			tree.Seed(p, prior.ModTime, parseSHA1(prior.ContentSHA1))
		}
	}

	changedFiles, err := tree.Changed()
	if err != nil {
		return nil, fmt.Errorf("detecting changed files: %w", err)
	}

	nodeData := make(map[string]map[string][]uint32)
	lastFailed := make(map[string]bool)

	if !recollect {
		records, err := db.ReadData(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading stored dependencies: %w", err)
		}

		for test, rec := range records {
			nodeData[test] = rec.Dependencies
			lastFailed[test] = rec.Failed
		}
	}

	selection := solver.Unaffected(nodeData, changedFiles)

	allTests, err := discovery.ListAll(ctx, cfg.PackageToAnalyze)
	if err != nil {
		return nil, fmt.Errorf("listing tests: %w", err)
	}

	summary := &Summary{Variant: v, TotalTests: len(allTests)}

	modulePath, err := coverage.ModulePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving module path: %w", err)
	}

	sc, err := scratch.Open(rootDir)
	if err != nil {
		return nil, fmt.Errorf("opening scratch directory: %w", err)
	}
	defer sc.Close() //nolint:errcheck // best effort cleanup

	keepIDs := make(map[string]bool, len(allTests))

	for _, test := range allTests {
		qualified := test.QualifiedName()
		keepIDs[qualified] = true

		if _, unaffected := selection.UnaffectedNodes[qualified]; unaffected && !lastFailed[qualified] {
			summary.UnaffectedTests++

			continue
		}

		summary.SelectedTests++

		dependencies, failed, err := runOne(ctx, rootDir, modulePath, cfg, test, tree, sc)
		if err != nil || failed {
			summary.FailedTests = append(summary.FailedTests, qualified)
		}

		if setErr := db.SetDependencies(ctx, qualified, dependencies, failed, ""); setErr != nil {
			fmt.Fprintf(os.Stderr, "persisting dependencies for %s: %v\n", qualified, setErr)
		}
	}

	if err := db.CollectGarbage(ctx, keepIDs); err != nil {
		return nil, fmt.Errorf("collecting garbage: %w", err)
	}

	if err := writeSourceTreeState(ctx, db, tree); err != nil {
		return nil, fmt.Errorf("writing source tree state: %w", err)
	}

	return summary, nil
}

// runOne runs one test under coverage, writing its profile with
// -coverprofile into the scratch directory (combined with any counters
// found in the test's scratch GOCOVERDIR subdirectory), and maps its
// executed-line set to block checksums per file, per
// spec.md §4.2/§4.7. Coverage profile blocks carry module-qualified file
// paths (e.g. "github.com/gotestmon/testmon/internal/x.go"); tree and the
// Dependency Store both key on rootdir-relative paths, so every file key is
// translated via modulePath before lookup or storage — the two namespaces
// must never be compared directly. If no file was measured (e.g. the test
// was skipped), it records a synthetic dependency on the test's own
// defining file, resolved relative to rootDir.
func runOne(
	ctx context.Context,
	rootDir string,
	modulePath string,
	cfg config.Config,
	test discovery.TestInfo,
	tree *sourcetree.Tree,
	sc *scratch.Scratch,
) (map[string][]uint32, bool, error) {
	coverpkg := cfg.CoveragePackages
	if coverpkg == "" {
		coverpkg = "./..."
	}

	name := exec.Sanitize(test.QualifiedName())

	coverDir, err := sc.ForTest(name)
	if err != nil {
		return nil, true, fmt.Errorf("preparing coverage dir for %s: %w", test.QualifiedName(), err)
	}

	profileFile := coverDir + ".out"

	runErr := exec.RunQuietCoverage("go", "test", "-count=1", "-cover", "-coverprofile="+profileFile,
		"-coverpkg="+coverpkg, "-run", "^"+test.Name+"$", test.Pkg)

	if combineErr := sc.CombineDir(ctx, coverDir, profileFile); combineErr != nil {
		return fallbackDeps(rootDir, modulePath, test), runErr != nil, nil //nolint:nilerr // combine failure degrades to the synthetic fallback
	}

	defer os.Remove(profileFile) //nolint:errcheck // best effort scratch cleanup

	if mergeErr := coverage.MergeBlocksFile(profileFile); mergeErr != nil {
		return fallbackDeps(rootDir, modulePath, test), runErr != nil, nil //nolint:nilerr // merge failure degrades to the synthetic fallback
	}

	profile, parseErr := coverage.ParseProfileFile(profileFile)
	if parseErr != nil {
		return fallbackDeps(rootDir, modulePath, test), runErr != nil, nil //nolint:nilerr // synthetic dependency fallback is the documented contract
	}

	executed := coverage.ExecutedLines(profile)

	deps := make(map[string][]uint32)

	for file, lines := range executed {
		relFile := relFromModulePath(modulePath, file)

		fp, ok := tree.Fingerprint(relFile)
		if !ok {
			continue
		}

		blocks := fp.Blocks
		if len(blocks) == 0 {
			// Seeded fingerprints of unchanged files carry no blocks yet.
			data, readErr := os.ReadFile(filepath.Join(rootDir, relFile)) //nolint:gosec // tracked project-relative path
			if readErr != nil {
				continue
			}

			blocks = block.Extract(data, relFile).Blocks
		}

		hits := coverage.ChecksumCoverage(blocks, lines)
		if len(hits) > 0 {
			deps[relFile] = coverage.DedupeChecksums(hits)
		}
	}

	if len(deps) == 0 {
		deps = fallbackDeps(rootDir, modulePath, test)
	}

	return deps, runErr != nil, nil
}

// fallbackDeps records a synthetic dependency on the test's own defining
// file, rootdir-relative, for the degenerate case where a test's run
// produced no measured coverage at all: the checksums of that file's blocks
// that contain line 1. If the file can't be read (fallbackFile returned the
// package directory), the placeholder checksum 1 is recorded instead.
func fallbackDeps(rootDir, modulePath string, test discovery.TestInfo) map[string][]uint32 {
	file := fallbackFile(rootDir, modulePath, test)

	data, err := os.ReadFile(filepath.Join(rootDir, file))
	if err != nil {
		return map[string][]uint32{file: {1}}
	}

	hits := coverage.ChecksumCoverage(block.Extract(data, file).Blocks, map[int]bool{1: true})

	return map[string][]uint32{file: coverage.DedupeChecksums(hits)}
}

// fallbackFile resolves the rootdir-relative path of the source file that
// defines test, falling back to the package's directory if the defining
// file can't be located.
func fallbackFile(rootDir, modulePath string, test discovery.TestInfo) string {
	dir := packageDir(modulePath, test.Pkg)

	fileName, err := discovery.TestFile(filepath.Join(rootDir, dir), test.Name)
	if err != nil || fileName == "" {
		return dir
	}

	return filepath.Join(dir, fileName)
}

// packageDir converts a module-qualified package import path to its
// rootdir-relative directory.
func packageDir(modulePath, pkg string) string {
	if pkg == modulePath {
		return "."
	}

	return strings.TrimPrefix(pkg, modulePath+"/")
}

// relFromModulePath strips the module import path prefix a coverage
// profile's Block.File carries, recovering the rootdir-relative path
// sourcetree and the Dependency Store key on.
func relFromModulePath(modulePath, file string) string {
	return strings.TrimPrefix(file, modulePath+"/")
}

func writeSourceTreeState(ctx context.Context, db *store.Store, tree *sourcetree.Tree) error {
	snapshot := tree.Snapshot()

	state := make(map[string]store.SourceTreeStateEntry, len(snapshot))
	for path, fp := range snapshot {
		state[path] = store.SourceTreeStateEntry{ModTime: fp.ModTime, ContentSHA1: formatSHA1(fp.ContentSHA1)}
	}

	return db.WriteSourceTreeState(ctx, state)
}

// formatSHA1 and parseSHA1 convert between the [20]byte digest sourcetree
// works with and the hex string the Dependency Store persists.
func formatSHA1(sum [20]byte) string {
	return hex.EncodeToString(sum[:])
}

func parseSHA1(s string) [20]byte {
	var out [20]byte

	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != len(out) {
		return out
	}

	copy(out[:], decoded)

	return out
}
