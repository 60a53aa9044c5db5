// Package model holds the request-scoped data entities shared across
// components: validation reports, isolation handles, counterexamples,
// branch records, and the tagged-union operation results.
package model

import (
	"encoding/json"
	"time"
)

// ErrorKind enumerates the error taxonomy propagated in error_type.
type ErrorKind string

const (
	ErrValue      ErrorKind = "ValueError"
	ErrSyntax     ErrorKind = "SyntaxError"
	ErrValidation ErrorKind = "ValidationError"
	ErrImport     ErrorKind = "ImportError"
	ErrTimeout    ErrorKind = "TimeoutError"
	ErrRuntime    ErrorKind = "RuntimeError"
)

// ValidationReport is C2's sole output: accept/reject plus one
// enumerated reason. Immutable once constructed.
type ValidationReport struct {
	OK      bool      `json:"ok"`
	Kind    ErrorKind `json:"error_kind,omitempty"`
	Message string    `json:"message,omitempty"`
	Line    *int      `json:"line,omitempty"`
	Rule    string    `json:"rule,omitempty"`
}

// Scalar is the int/bool/string/null union used in counterexample
// argument maps. Only one of the fields is meaningful, selected by Kind.
type Scalar struct {
	Kind ScalarKind
	I    int64
	B    bool
	S    string
}

// MarshalJSON renders a Scalar as the bare JSON value of its populated
// member: a number, a boolean, a string, or null.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ScalarInt:
		return json.Marshal(s.I)
	case ScalarBool:
		return json.Marshal(s.B)
	case ScalarString:
		return json.Marshal(s.S)
	default:
		return []byte("null"), nil
	}
}

type ScalarKind int

const (
	ScalarNull ScalarKind = iota
	ScalarInt
	ScalarBool
	ScalarString
)

// Counterexample is a concrete assignment of argument values
// demonstrating a contract violation or a triggered exception.
type Counterexample struct {
	Args           map[string]Scalar `json:"args"`
	Kwargs         map[string]Scalar `json:"kwargs"`
	Violation      string            `json:"violation"`
	ActualResult   string            `json:"actual_result"`
	PathCondition  string            `json:"path_condition"`
}

// Reachability classifies a BranchRecord's symbolic reachability.
type Reachability string

const (
	Reachable   Reachability = "reachable"
	Unreachable Reachability = "unreachable"
	Unknown     Reachability = "unknown"
)

// BranchRecord describes one if/elif/while/for decision point.
type BranchRecord struct {
	Line          int          `json:"line"`
	ConditionText string       `json:"condition_text"`
	Reachability  Reachability `json:"reachability"`
}

// Timing is embedded in every operation result; time_seconds is
// reported on both success and failure.
type Timing struct {
	TimeSeconds float64 `json:"time_seconds"`
}

// NewTiming measures elapsed time since start, at response-shaping time.
func NewTiming(start time.Time) Timing {
	return Timing{TimeSeconds: time.Since(start).Seconds()}
}

// ContractCheckResult is the tagged-union result of contract_check.
type ContractCheckResult struct {
	Timing
	Status           string           `json:"status"` // verified|counterexample|timeout|error
	PathsExplored    int              `json:"paths_explored,omitempty"`
	PathsVerified    int              `json:"paths_verified,omitempty"`
	CoverageEstimate float64          `json:"coverage_estimate,omitempty"`
	Counterexamples  []Counterexample `json:"counterexamples,omitempty"`
	ErrorType        ErrorKind        `json:"error_type,omitempty"`
	Message          string           `json:"message,omitempty"`
}

// ExceptionPathResult is the tagged-union result of exception_path.
type ExceptionPathResult struct {
	Timing
	Status           string           `json:"status"` // found|unreachable|timeout|error
	TriggeringInputs []Counterexample `json:"triggering_inputs,omitempty"`
	ErrorType        ErrorKind        `json:"error_type,omitempty"`
	Message          string           `json:"message,omitempty"`
}

// EquivalenceResult is the tagged-union result of equivalence.
type EquivalenceResult struct {
	Timing
	Status              string     `json:"status"` // equivalent|different|error
	Confidence          string     `json:"confidence,omitempty"`
	DistinguishingInput *Scalar    `json:"distinguishing_input,omitempty"`
	ErrorType           ErrorKind  `json:"error_type,omitempty"`
	Message             string     `json:"message,omitempty"`
}

// NewIntScalar, NewBoolScalar, NewStringScalar, and NullScalar build one
// member of the Scalar union each, keeping Kind and the populated field
// in sync at every call site rather than leaving it to the caller.
func NewIntScalar(v int64) Scalar    { return Scalar{Kind: ScalarInt, I: v} }
func NewBoolScalar(v bool) Scalar    { return Scalar{Kind: ScalarBool, B: v} }
func NewStringScalar(v string) Scalar { return Scalar{Kind: ScalarString, S: v} }
func NullScalar() Scalar             { return Scalar{Kind: ScalarNull} }

// BranchAnalysisResult is the tagged-union result of branch_analysis.
type BranchAnalysisResult struct {
	Timing
	Status           string         `json:"status"`
	Branches         []BranchRecord `json:"branches,omitempty"`
	Complexity       int            `json:"cyclomatic_complexity,omitempty"`
	DeadCodeLines    []int          `json:"dead_code_lines,omitempty"`
	ErrorType        ErrorKind      `json:"error_type,omitempty"`
	Message          string         `json:"message,omitempty"`
}
