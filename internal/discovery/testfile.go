package discovery

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

// TestFile returns the base name of the _test.go file in dir that defines
// the top-level test function named testName, or "" if no file in dir
// defines it. Used to resolve a synthetic self-file dependency for a test
// whose run produced no measured coverage.
func TestFile(dir, testName string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	fset := token.NewFileSet()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			continue
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || !isTestFunc(fn) {
				continue
			}

			if fn.Name.Name == testName {
				return entry.Name(), nil
			}
		}
	}

	return "", nil
}
