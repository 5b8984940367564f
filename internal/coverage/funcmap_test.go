package coverage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gotestmon/testmon/internal/coverage"
)

func writeModule(t *testing.T, dir string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/sample\n\ngo 1.25\n"), 0o600); err != nil {
		t.Fatalf("WriteFile go.mod: %v", err)
	}

	src := `package sample

func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	return a - b
}
`

	if err := os.WriteFile(filepath.Join(dir, "sample.go"), []byte(src), 0o600); err != nil {
		t.Fatalf("WriteFile sample.go: %v", err)
	}
}

func TestBuildFunctionMap_FindsFunctionBounds(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir)

	fm, err := coverage.BuildFunctionMap(dir)
	if err != nil {
		t.Fatalf("BuildFunctionMap: %v", err)
	}

	bounds, ok := fm["example.com/sample/sample.go"]
	if !ok {
		t.Fatalf("FunctionMap missing sample.go: %+v", fm)
	}

	if len(bounds) != 2 {
		t.Fatalf("bounds = %+v, want 2 entries", bounds)
	}

	if bounds[0].Name != "Add" || bounds[1].Name != "Sub" {
		t.Errorf("bounds = %+v, want Add then Sub", bounds)
	}
}

func TestFindFunction_LocatesContainingFunction(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir)

	fm, err := coverage.BuildFunctionMap(dir)
	if err != nil {
		t.Fatalf("BuildFunctionMap: %v", err)
	}

	got := fm.FindFunction("example.com/sample/sample.go", 4)
	want := "example.com/sample/sample.go:Add"

	if got != want {
		t.Errorf("FindFunction() = %q, want %q", got, want)
	}
}

func TestFindFunction_ReturnsEmptyOutsideAnyFunction(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir)

	fm, err := coverage.BuildFunctionMap(dir)
	if err != nil {
		t.Fatalf("BuildFunctionMap: %v", err)
	}

	if got := fm.FindFunction("example.com/sample/sample.go", 1); got != "" {
		t.Errorf("FindFunction() on package line = %q, want empty", got)
	}
}

func TestComputeFunctionCoverage_AttributesBlocksToFunctions(t *testing.T) {
	fm := coverage.FunctionMap{
		"sample.go": {
			{Name: "Add", StartLine: 3, EndLine: 5},
			{Name: "Sub", StartLine: 7, EndLine: 9},
		},
	}

	profile := &coverage.Profile{
		Mode: "set",
		Blocks: []coverage.Block{
			{File: "sample.go", StartLine: 4, EndLine: 4, Statements: 1, Count: 1},
			{File: "sample.go", StartLine: 8, EndLine: 8, Statements: 1, Count: 0},
		},
	}

	got := fm.ComputeFunctionCoverage(profile)

	if got["sample.go:Add"] != 100.0 {
		t.Errorf("Add coverage = %v, want 100", got["sample.go:Add"])
	}

	if got["sample.go:Sub"] != 0.0 {
		t.Errorf("Sub coverage = %v, want 0", got["sample.go:Sub"])
	}
}
