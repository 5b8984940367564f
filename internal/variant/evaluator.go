// Package variant evaluates a user-supplied expression that names the
// active run variant — the string discriminator partitioning the
// Dependency Store.
package variant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"time"

	"github.com/traefik/yaegi/interp"
)

// evalTimeout bounds how long a variant expression may run before it is
// treated as an evaluation error.
const evalTimeout = 2 * time.Second

// Eval evaluates expr in a closed sandbox and returns the resulting string.
// An empty expression returns "". The sandbox exposes exactly three
// functions — Getenv, HashHex, RuntimeInfo — and nothing else: no stdlib
// package is loaded, so the expression cannot read or write the
// filesystem, spawn a process, or import anything. Any evaluation error is
// caught and its textual form becomes the variant string, per spec.md
// §4.6 — Eval itself never returns an error.
func Eval(ctx context.Context, expr string) string {
	if expr == "" {
		return ""
	}

	resultCh := make(chan string, 1)

	go func() {
		resultCh <- evalSandboxed(expr)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	select {
	case result := <-resultCh:
		return result
	case <-timeoutCtx.Done():
		return timeoutCtx.Err().Error()
	}
}

func evalSandboxed(expr string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = fmt.Sprintf("%v", r)
		}
	}()

	i := interp.New(interp.Options{})

	if err := i.Use(sandboxSymbols()); err != nil {
		return err.Error()
	}

	v, err := i.Eval(wrapExpr(expr))
	if err != nil {
		return err.Error()
	}

	if !v.IsValid() {
		return ""
	}

	return fmt.Sprintf("%v", v.Interface())
}

func wrapExpr(expr string) string {
	return `
package main

import "sandbox"

var Result = ` + expr + `
`
}

// sandboxSymbols builds the closed symbol table: a single "sandbox" package
// exporting exactly Getenv, HashHex, and RuntimeInfo, installed in place of
// stdlib.Symbols so nothing else is reachable.
func sandboxSymbols() interp.Exports {
	return interp.Exports{
		"sandbox/sandbox": {
			"Getenv":      reflect.ValueOf(Getenv),
			"HashHex":     reflect.ValueOf(HashHex),
			"RuntimeInfo": reflect.ValueOf(RuntimeInfo),
		},
	}
}

// Getenv looks up an environment variable by name, returning "" if unset.
func Getenv(name string) string {
	return os.Getenv(name)
}

// HashHex returns the lowercase hex SHA-256 digest of s.
func HashHex(s string) string {
	sum := sha256.Sum256([]byte(s))

	return hex.EncodeToString(sum[:])
}

// RuntimeInfo returns a small process-info string: "<GOOS>/<GOARCH>".
func RuntimeInfo() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
