// Package engine defines the symbolic execution engine contract the
// orchestrator depends on (spec.md §4.5.1) and ships one concrete,
// swappable implementation: a bounded-enumeration engine backed by the
// Mangle Datalog evaluator, standing in for whatever real solver a
// production deployment would plug in at this boundary. The
// orchestrator never imports the concrete type, only Engine.
package engine

import "context"

// MessageKind classifies one message an engine emits while exploring a
// target callable's symbolic paths.
type MessageKind string

const (
	// PreUnsat means a path's precondition was unsatisfiable; the path
	// contributes no counterexample and is not itself an error.
	PreUnsat MessageKind = "PRE_UNSAT"
	// PostFail means a path reached its postcondition and the
	// postcondition evaluated false for the path's concrete inputs.
	PostFail MessageKind = "POST_FAIL"
	// ExecErr means executing the target under a path's concrete
	// inputs raised an exception.
	ExecErr MessageKind = "EXEC_ERR"
	// Confirmed means a path was explored and its postcondition held;
	// informational, contributes to paths_verified.
	Confirmed MessageKind = "CONFIRMED"
)

// OffendingInput is one concrete counterexample binding: the sampled
// arguments as name=value pairs sorted by name, rendered in the engine's
// bespoke textual form (parsed downstream by the orchestrator per
// spec.md §4.5.8), plus the exception class name when the message is
// an EXEC_ERR.
type OffendingInput struct {
	ArgsText      string
	ExceptionName string
}

// Message is one unit of engine output for a single analyzed path.
type Message struct {
	Kind            MessageKind
	MessageText     string
	PathCondition   string
	OffendingInputs []OffendingInput
}

// Options carries the timeout cascade and accepted contract styles for
// one analyze call.
type Options struct {
	PerConditionTimeoutSec float64
	PerPathTimeoutSec      float64
	ContractStyles         []string
	SymbolicMode           bool
}

// Target names the callable to analyze within a source file. For
// equivalence, Source is the synthesized wrapper asserting f==g, not
// the original two-function source.
type Target struct {
	Source       string
	FunctionName string
}

// Result aggregates what the orchestrator needs from one full analyze
// call: every message produced plus the engine's own path-count
// bookkeeping, used by the coverage-estimate formula (§4.5.7).
type Result struct {
	Messages       []Message
	PathsExplored  int
	PathsVerified  int
	TimedOut       bool
}

// Engine is the external symbolic-execution collaborator the
// orchestrator depends on only through this interface (spec.md §1.2
// treats its internals as out of scope; §4.5.1 specifies this surface).
// Analyze takes the per-request context so a parent cancellation (the
// orchestrator's budget expiring, or the caller disconnecting) unwinds
// every blocking point inside an implementation rather than leaving it
// to run to completion after the orchestrator has already given up.
type Engine interface {
	Analyze(ctx context.Context, target Target, opts Options) (Result, error)
}
