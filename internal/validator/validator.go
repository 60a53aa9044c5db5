// Package validator implements the static validator component (C2):
// it rejects source that is too large, unparseable, or that violates
// the module/builtin/global policy before any isolated execution is
// attempted, per spec.md §4.2.
package validator

import (
	"context"
	"fmt"
	"time"

	"symbolicd/internal/config"
	"symbolicd/internal/logging"
	"symbolicd/internal/mangle"
	"symbolicd/internal/model"
	"symbolicd/internal/pyast"
)

var log = logging.Get(logging.CategoryValidator)

// Validate runs the full validation pipeline against one source string:
// size check, parse, then policy rules R1-R8 via the Datalog engine.
// Before the Datalog query, a direct pass over the extracted facts
// checks the dunder/dynamic-access rules (R4-R7) and returns its report
// if it finds a violation (defense in depth against a schema typo
// suppressing an entire rule class, not a substitute for it).
func Validate(ctx context.Context, source string, cfg *config.Config) model.ValidationReport {
	if len(source) > cfg.Limits.CodeSizeLimit {
		return model.ValidationReport{
			OK:      false,
			Kind:    model.ErrValue,
			Message: fmt.Sprintf("source exceeds code_size_limit of %d bytes", cfg.Limits.CodeSizeLimit),
			Rule:    "size_limit",
		}
	}

	tree, err := pyast.Parse(ctx, []byte(source))
	if err != nil {
		log.Warn("parse failed: %v", err)
		return model.ValidationReport{
			OK:      false,
			Kind:    model.ErrSyntax,
			Message: err.Error(),
			Rule:    "parse_error",
		}
	}
	defer tree.Close()

	if line := tree.FirstError(); line != nil {
		return model.ValidationReport{
			OK:      false,
			Kind:    model.ErrSyntax,
			Message: "syntax error",
			Line:    line,
			Rule:    "syntax_error",
		}
	}

	facts := pyast.ExtractFacts(tree)

	if report, found := directDunderCheck(facts, cfg); found {
		return report
	}

	report, err := queryPolicyViolations(ctx, facts, cfg)
	if err != nil {
		log.Error("policy query failed: %v", err)
		return model.ValidationReport{
			OK:      false,
			Kind:    model.ErrRuntime,
			Message: fmt.Sprintf("policy evaluation failed: %v", err),
			Rule:    "policy_engine_error",
		}
	}
	return report
}

func queryPolicyViolations(ctx context.Context, facts *pyast.Facts, cfg *config.Config) (model.ValidationReport, error) {
	engine, err := newPolicyEngine(cfg)
	if err != nil {
		return model.ValidationReport{}, err
	}
	defer engine.Close()

	if err := engine.AddFacts(facts.ToMangleFacts()); err != nil {
		return model.ValidationReport{}, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := engine.Query(queryCtx, `?violation(Kind, Detail, Line)`)
	if err != nil {
		return model.ValidationReport{}, err
	}
	if len(result.Bindings) == 0 {
		return model.ValidationReport{OK: true}, nil
	}

	earliest := earliestBinding(result.Bindings)
	kind, _ := earliest["Kind"].(string)
	detail, _ := earliest["Detail"].(string)
	line := bindingLine(earliest["Line"])

	return model.ValidationReport{
		OK:      false,
		Kind:    model.ErrValidation,
		Message: violationMessage(kind, detail),
		Line:    &line,
		Rule:    kind,
	}, nil
}

func earliestBinding(bindings []map[string]interface{}) map[string]interface{} {
	best := bindings[0]
	bestLine := bindingLine(best["Line"])
	for _, b := range bindings[1:] {
		if l := bindingLine(b["Line"]); l < bestLine {
			best, bestLine = b, l
		}
	}
	return best
}

func bindingLine(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func violationMessage(kind, detail string) string {
	switch kind {
	case "blocked_import":
		return fmt.Sprintf("import of module %q is not permitted", detail)
	case "dangerous_call":
		return fmt.Sprintf("call to dangerous builtin %q is not permitted", detail)
	case "blocked_global":
		return fmt.Sprintf("reference to blocked global %q is not permitted", detail)
	case "dunder_access":
		return fmt.Sprintf("access to %q is not permitted", detail)
	case "dynamic_builtins_access":
		return fmt.Sprintf("dynamic access to the blocked global %q is not permitted", detail)
	case "literal_hiding":
		return fmt.Sprintf("dangerous builtin %q referenced via a literal-hiding subscript is not permitted", detail)
	case "string_concat_hiding":
		return "dynamically assembled identifiers via string concatenation are not permitted"
	case "short_circuit":
		return "boolean short-circuit call targets are not permitted"
	default:
		return "source violates the execution policy"
	}
}

// directDunderCheck re-evaluates the dunder/dynamic-access facts
// against the compiled policy without going through Datalog, as a
// backstop against a schema typo silently disabling an entire rule
// class. Returns found=false when nothing was flagged, leaving the
// Datalog path as the single source of truth in the common case.
func directDunderCheck(facts *pyast.Facts, cfg *config.Config) (model.ValidationReport, bool) {
	blocked := make(map[string]struct{}, len(blockedAttributes))
	for _, a := range blockedAttributes {
		blocked[a] = struct{}{}
	}
	for _, attr := range facts.Attributes {
		if _, ok := blocked[attr.Attr]; ok {
			line := attr.Line
			return model.ValidationReport{
				OK:      false,
				Kind:    model.ErrValidation,
				Message: fmt.Sprintf("access to %q is not permitted", attr.Attr),
				Line:    &line,
				Rule:    "dunder_access",
			}, true
		}
		// R5: attribute access on a name referring to a blocked global.
		if cfg.Policy.IsBlockedGlobal(attr.Object) {
			line := attr.Line
			return model.ValidationReport{
				OK:      false,
				Kind:    model.ErrValidation,
				Message: fmt.Sprintf("dynamic access to the blocked global %q is not permitted", attr.Object),
				Line:    &line,
				Rule:    "dynamic_builtins_access",
			}, true
		}
	}
	// R6: subscript on a name referring to a blocked global.
	for _, sub := range facts.Subscripts {
		if cfg.Policy.IsBlockedGlobal(sub.Object) {
			line := sub.Line
			return model.ValidationReport{
				OK:      false,
				Kind:    model.ErrValidation,
				Message: fmt.Sprintf("dynamic access to the blocked global %q is not permitted", sub.Object),
				Line:    &line,
				Rule:    "dynamic_builtins_access",
			}, true
		}
	}
	// R7: list/tuple/dict-literal subscript referencing a dangerous
	// builtin by name, e.g. [eval][0].
	for _, ref := range facts.SubscriptLiteralRefs {
		if cfg.Policy.IsDangerousBuiltin(ref.Name) {
			line := ref.Line
			return model.ValidationReport{
				OK:      false,
				Kind:    model.ErrValidation,
				Message: fmt.Sprintf("dangerous builtin %q referenced via a literal-hiding subscript is not permitted", ref.Name),
				Line:    &line,
				Rule:    "literal_hiding",
			}, true
		}
	}
	// R4: getattr(X, ...) where X is a name referring to a blocked
	// global, e.g. getattr(__builtins__, "eval").
	for _, call := range facts.GetattrCalls {
		if cfg.Policy.IsBlockedGlobal(call.Arg) {
			line := call.Line
			return model.ValidationReport{
				OK:      false,
				Kind:    model.ErrValidation,
				Message: fmt.Sprintf("dynamic access to the blocked global %q is not permitted", call.Arg),
				Line:    &line,
				Rule:    "dynamic_builtins_access",
			}, true
		}
	}
	return model.ValidationReport{}, false
}

func newPolicyEngine(cfg *config.Config) (*mangle.Engine, error) {
	engineCfg := mangle.DefaultConfig()
	engineCfg.FactLimit = 20000
	engineCfg.QueryTimeout = 3

	engine, err := mangle.NewEngine(engineCfg)
	if err != nil {
		return nil, err
	}
	if err := engine.LoadSchemaString(policySchema); err != nil {
		return nil, err
	}

	var seedFacts []mangle.Fact
	for name := range cfg.Policy.AllowedModules {
		seedFacts = append(seedFacts, mangle.Fact{Predicate: "allowed_module", Args: []interface{}{name}})
	}
	for name := range cfg.Policy.BlockedModules {
		seedFacts = append(seedFacts, mangle.Fact{Predicate: "blocked_module", Args: []interface{}{name}})
	}
	for name := range cfg.Policy.DangerousBuiltins {
		seedFacts = append(seedFacts, mangle.Fact{Predicate: "dangerous_builtin", Args: []interface{}{name}})
	}
	for name := range cfg.Policy.BlockedGlobals {
		seedFacts = append(seedFacts, mangle.Fact{Predicate: "blocked_global_name", Args: []interface{}{name}})
	}
	for _, attr := range blockedAttributes {
		seedFacts = append(seedFacts, mangle.Fact{Predicate: "blocked_attribute", Args: []interface{}{attr}})
	}

	if err := engine.AddFacts(seedFacts); err != nil {
		return nil, err
	}
	return engine, nil
}
