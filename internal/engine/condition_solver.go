package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// comparisonPattern matches the single-variable linear comparisons this
// bounded-enumeration engine can solve directly: "<ident> <op> <number>".
// Anything richer (multi-variable, non-linear, string/collection
// conditions) falls outside this reference engine's solving power; it
// still enumerates the branch, but no witness value is produced for it
// and its variable is left out of the sample input, which is why this is
// a stand-in and not a production solver.
var comparisonPattern = regexp.MustCompile(`^\(?\s*([A-Za-z_][A-Za-z0-9_]*)\s*(==|!=|<=|>=|<|>)\s*(-?\d+(?:\.\d+)?)\s*\)?$`)

// witnessFor returns a sample value for variable that makes condition
// evaluate to wantTrue, using a small fixed offset for strict
// inequalities so boundary-adjacent scenarios (B-series properties)
// stay distinguishable across enumerated paths.
func witnessFor(condition string, wantTrue bool) (variable string, value interface{}, ok bool) {
	m := comparisonPattern.FindStringSubmatch(strings.TrimSpace(condition))
	if m == nil {
		return "", nil, false
	}
	variable, op, rawLiteral := m[1], m[2], m[3]

	literal, err := strconv.ParseFloat(rawLiteral, 64)
	if err != nil {
		return "", nil, false
	}

	want := op
	if !wantTrue {
		want = negateOp(op)
	}

	var result float64
	switch want {
	case "==":
		result = literal
	case "!=":
		result = literal + 1
	case "<":
		result = literal - 1
	case "<=":
		result = literal
	case ">":
		result = literal + 1
	case ">=":
		result = literal
	default:
		return "", nil, false
	}

	if result == float64(int64(result)) {
		return variable, int64(result), true
	}
	return variable, result, true
}

// evaluateCondition evaluates a single-variable linear comparison
// against a sampled witness map, returning ok=false when condition
// isn't in the supported shape or sample has no binding for its
// variable.
func evaluateCondition(condition string, sample map[string]interface{}) (bool, bool) {
	m := comparisonPattern.FindStringSubmatch(strings.TrimSpace(condition))
	if m == nil {
		return false, false
	}
	variable, op, rawLiteral := m[1], m[2], m[3]

	raw, ok := sample[variable]
	if !ok {
		return false, false
	}
	var value float64
	switch v := raw.(type) {
	case int64:
		value = float64(v)
	case float64:
		value = v
	default:
		return false, false
	}

	literal, err := strconv.ParseFloat(rawLiteral, 64)
	if err != nil {
		return false, false
	}

	switch op {
	case "==":
		return value == literal, true
	case "!=":
		return value != literal, true
	case "<":
		return value < literal, true
	case "<=":
		return value <= literal, true
	case ">":
		return value > literal, true
	case ">=":
		return value >= literal, true
	default:
		return false, false
	}
}

func negateOp(op string) string {
	switch op {
	case "==":
		return "!="
	case "!=":
		return "=="
	case "<":
		return ">="
	case "<=":
		return ">"
	case ">":
		return "<="
	case ">=":
		return "<"
	default:
		return op
	}
}

// renderArgsText renders a variable->value sample map into the engine's
// bespoke textual form the orchestrator's recursive-descent parser
// (spec.md §4.5.8) consumes: a parenthesized, comma-separated list of
// "name=value" pairs, values rendered as Python literals.
func renderArgsText(sample map[string]interface{}) string {
	if len(sample) == 0 {
		return "()"
	}
	names := make([]string, 0, len(sample))
	for name := range sample {
		names = append(names, name)
	}
	sortStrings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, renderLiteral(sample[name])))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func renderLiteral(v interface{}) string {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "\\'") + "'"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case nil:
		return "None"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
