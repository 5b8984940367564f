package discovery

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

// DetectParallelTests scans every *_test.go file in dir and reports, for
// each top-level Test function, whether its body calls t.Parallel(). Files
// that fail to parse are skipped.
func DetectParallelTests(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool)

	fset := token.NewFileSet()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			continue
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || !isTestFunc(fn) {
				continue
			}

			result[fn.Name.Name] = HasParallelCall(fn.Body)
		}
	}

	return result, nil
}

func isTestFunc(fn *ast.FuncDecl) bool {
	if fn.Recv != nil {
		return false
	}

	if !strings.HasPrefix(fn.Name.Name, "Test") {
		return false
	}

	return len(fn.Type.Params.List) == 1
}
