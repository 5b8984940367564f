package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/gotestmon/testmon/internal/exec"
)

// List discovers every test function in pkg by running `go list` to find the
// package boundary and `go test -list` to enumerate its Test functions.
func List(ctx context.Context, pkg string) ([]TestInfo, error) {
	importPath, err := exec.Output(ctx, "go", "list", pkg)
	if err != nil {
		return nil, fmt.Errorf("listing package %s: %w", pkg, err)
	}

	importPath = strings.TrimSpace(importPath)

	output, err := exec.Output(ctx, "go", "test", "-list", ".*", pkg)
	if err != nil {
		return nil, fmt.Errorf("listing tests in %s: %w", pkg, err)
	}

	return ParseTestOutput(importPath, output), nil
}

// ListAll discovers every test function across every package matched by
// pkgPattern (e.g. "./..."). A pattern that matches no package is an error.
func ListAll(ctx context.Context, pkgPattern string) ([]TestInfo, error) {
	listed, err := exec.Output(ctx, "go", "list", pkgPattern)
	if err != nil {
		return nil, fmt.Errorf("listing packages %s: %w", pkgPattern, err)
	}

	listed = strings.TrimSpace(listed)
	if listed == "" {
		return nil, fmt.Errorf("listing packages %s: pattern matched no packages", pkgPattern)
	}

	var all []TestInfo

	for _, pkg := range strings.Split(listed, "\n") {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			continue
		}

		tests, err := List(ctx, pkg)
		if err != nil {
			return nil, err
		}

		all = append(all, tests...)
	}

	return all, nil
}
