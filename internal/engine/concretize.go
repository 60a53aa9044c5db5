// Concretization is a secondary, best-effort check: it transpiles one
// branch condition of the single-variable comparison shape
// "<ident> <op> <number>" into a Go snippet with the sampled witness
// bound to the variable, and runs it through Yaegi's sandboxed
// interpreter, confirming the witness gives the condition the truth
// value the engine assumed. Whole functions are not transpiled. It is
// deliberately one-way: a mismatch or an
// unsupported shape only lowers Confidence, never flips a Message's
// Kind or promotes an unverified path to a proof (spec.md §4.5.5's
// "never promote uncertainty to a proof" applies here by the same
// logic). Grounded on the teacher's YaegiExecutor sandboxed
// context-bounded call pattern.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Confidence qualifies how much a concretization attempt corroborates
// a sampled witness. It is returned only by ConcretizeNumericWitness and
// is carried neither on Message nor on model.Counterexample.
type Confidence string

const (
	ConfidenceProven    Confidence = "proven"
	ConfidenceSupported Confidence = "supported" // concretization ran and agreed
	ConfidenceUnverified Confidence = "unverified" // concretization could not run or disagreed
)

var simpleFunctionPattern = regexp.MustCompile(`(?s)def\s+\w+\s*\(\s*(\w+)\s*\)\s*:\s*(.*)`)

// ConcretizeNumericWitness attempts to re-derive a single-variable
// sample's outcome by interpreting a transpiled Go version of condition
// (with variable bound to value) via Yaegi; source is not read. It
// returns ConfidenceSupported only when the transpile
// succeeded, ran within the timeout, and produced the same boolean
// outcome the engine assumed when it picked wantTrue for condition.
func ConcretizeNumericWitness(ctx context.Context, source, variable string, value interface{}, condition string, wantTrue bool) Confidence {
	snippet, ok := transpileCondition(condition, variable, value)
	if !ok {
		return ConfidenceUnverified
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resultCh := make(chan bool, 1)
	errCh := make(chan error, 1)

	go func() {
		i := interp.New(interp.Options{})
		if err := i.Use(stdlib.Symbols); err != nil {
			errCh <- err
			return
		}
		if _, err := i.Eval(snippet); err != nil {
			errCh <- err
			return
		}
		v, err := i.Eval("main.Check")
		if err != nil {
			errCh <- err
			return
		}
		fn, ok := v.Interface().(func() bool)
		if !ok {
			errCh <- fmt.Errorf("unexpected Check signature")
			return
		}
		resultCh <- fn()
	}()

	select {
	case got := <-resultCh:
		if got == wantTrue {
			return ConfidenceSupported
		}
		return ConfidenceUnverified
	case <-errCh:
		return ConfidenceUnverified
	case <-ctx.Done():
		return ConfidenceUnverified
	}
}

// transpileCondition builds a minimal Go program defining
// func Check() bool evaluating condition with variable bound to value.
// Only the comparison shape condition_solver.go already understands
// (single identifier, comparison operator, numeric literal) is
// supported; anything else returns ok=false and the caller falls back
// to ConfidenceUnverified without attempting to run anything.
func transpileCondition(condition, variable string, value interface{}) (string, bool) {
	m := comparisonPattern.FindStringSubmatch(strings.TrimSpace(condition))
	if m == nil {
		return "", false
	}
	if m[1] != variable {
		return "", false
	}
	op := goOperator(m[2])
	if op == "" {
		return "", false
	}

	snippet := fmt.Sprintf(`package main

func Check() bool {
	%s := %v
	return %s %s %s
}
`, variable, value, variable, op, m[3])
	return snippet, true
}

func goOperator(pyOp string) string {
	switch pyOp {
	case "==", "!=", "<", ">", "<=", ">=":
		return pyOp
	default:
		return ""
	}
}
