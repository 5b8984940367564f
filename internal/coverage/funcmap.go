package coverage

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FunctionBounds represents the line range of a function in a source file.
type FunctionBounds struct {
	Name      string // Function name (e.g., "Foo" or "(*T).Method")
	StartLine int
	EndLine   int
}

// FunctionMap maps file paths (as they appear in coverage profiles, e.g.
// "github.com/foo/bar/file.go") to their function boundaries.
type FunctionMap map[string][]FunctionBounds

// ModulePath reads moduleRoot's go.mod and returns the module's import
// path — the prefix coverage profile `Block.File` entries carry, and the
// prefix callers must strip to recover a rootdir-relative path.
func ModulePath(moduleRoot string) (string, error) {
	goModPath := filepath.Join(moduleRoot, "go.mod")

	goModContent, err := os.ReadFile(goModPath) //nolint:gosec // moduleRoot is operator-supplied
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod at %s: %w", goModPath, err)
	}

	modulePath := extractModulePath(string(goModContent))
	if modulePath == "" {
		return "", fmt.Errorf("could not extract module path from go.mod at %s", goModPath)
	}

	return modulePath, nil
}

// BuildFunctionMap parses every non-test Go source file under moduleRoot to
// extract function boundaries, keyed by the file's module-qualified path —
// the same path shape `go test -coverprofile` block IDs use.
func BuildFunctionMap(moduleRoot string) (FunctionMap, error) {
	funcMap := make(FunctionMap)

	modulePath, err := ModulePath(moduleRoot)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(moduleRoot, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if info.IsDir() {
			name := info.Name()
			if name == "vendor" || name == "testdata" || (strings.HasPrefix(name, ".") && name != ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		fset := token.NewFileSet()

		file, parseErr := parser.ParseFile(fset, path, nil, 0)
		if parseErr != nil {
			return nil
		}

		relPath, _ := filepath.Rel(moduleRoot, path)
		coverPath := modulePath + "/" + filepath.ToSlash(relPath)

		var bounds []FunctionBounds

		ast.Inspect(file, func(n ast.Node) bool {
			fn, ok := n.(*ast.FuncDecl)
			if !ok {
				return true
			}

			name := fn.Name.Name
			if fn.Recv != nil && len(fn.Recv.List) > 0 {
				name = "(" + funcRecvString(fn.Recv.List[0].Type) + ")." + name
			}

			bounds = append(bounds, FunctionBounds{
				Name:      name,
				StartLine: fset.Position(fn.Pos()).Line,
				EndLine:   fset.Position(fn.End()).Line,
			})

			return true
		})

		if len(bounds) > 0 {
			sort.Slice(bounds, func(i, j int) bool { return bounds[i].StartLine < bounds[j].StartLine })
			funcMap[coverPath] = bounds
		}

		return nil
	})

	return funcMap, err
}

func extractModulePath(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}

	return ""
}

func funcRecvString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + funcRecvString(t.X)
	case *ast.IndexExpr:
		return funcRecvString(t.X) + "[" + funcRecvString(t.Index) + "]"
	case *ast.IndexListExpr:
		return funcRecvString(t.X)
	default:
		return "?"
	}
}

// FindFunction returns "file:FuncName" for the function containing line in
// file, or "" if no function in the map contains it.
func (fm FunctionMap) FindFunction(file string, line int) string {
	bounds, ok := fm[file]
	if !ok {
		return ""
	}

	idx := sort.Search(len(bounds), func(i int) bool { return bounds[i].EndLine >= line })

	if idx < len(bounds) && bounds[idx].StartLine <= line && line <= bounds[idx].EndLine {
		return file + ":" + bounds[idx].Name
	}

	return ""
}

// ComputeFunctionCoverage computes per-function coverage percentage from a
// parsed coverage Profile, attributing each profile block's statement
// count to the function it falls inside of.
func (fm FunctionMap) ComputeFunctionCoverage(p *Profile) map[string]float64 {
	type funcStats struct {
		covered int
		total   int
	}

	stats := make(map[string]*funcStats)

	for _, b := range p.Blocks {
		funcName := fm.FindFunction(b.File, b.StartLine)
		if funcName == "" {
			continue
		}

		if stats[funcName] == nil {
			stats[funcName] = &funcStats{}
		}

		stats[funcName].total += b.Statements

		if b.Count > 0 {
			stats[funcName].covered += b.Statements
		}
	}

	result := make(map[string]float64, len(stats))

	for fn, s := range stats {
		if s.total > 0 {
			result[fn] = float64(s.covered) * 100.0 / float64(s.total)
		}
	}

	return result
}
