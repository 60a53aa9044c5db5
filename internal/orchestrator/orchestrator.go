// Package orchestrator implements the analysis orchestrator component
// (C5): the common validate/acquire/analyze/teardown/respond pipeline
// from spec.md §4.5.2, and the four analysis operations built on top
// of it.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"symbolicd/internal/config"
	"symbolicd/internal/engine"
	"symbolicd/internal/governor"
	"symbolicd/internal/isolation"
	"symbolicd/internal/logging"
	"symbolicd/internal/model"
	"symbolicd/internal/pyast"
	"symbolicd/internal/validator"
)

var log = logging.Get(logging.CategoryOrchestrator)

// Orchestrator wires the validator, isolation manager, and a symbolic
// Engine behind the four request operations. It depends on engine.Engine
// only through the interface; the concrete engine is supplied by the
// caller (normally the reference Mangle-backed engine from cmd/symbolicd).
type Orchestrator struct {
	Config *config.Config
	Engine engine.Engine
}

// New constructs an Orchestrator over a loaded config and a concrete
// Engine implementation.
func New(cfg *config.Config, eng engine.Engine) *Orchestrator {
	return &Orchestrator{Config: cfg, Engine: eng}
}

// validateAndAcquire runs the shared first two pipeline phases. When
// report.OK is false the caller must short-circuit with an error
// result built from report; release is always non-nil and must be
// deferred by the caller when err is nil.
func (o *Orchestrator) validateAndAcquire(ctx context.Context, source string) (report model.ValidationReport, release func(), err error) {
	report = validator.Validate(ctx, source, o.Config)
	if !report.OK {
		return report, func() {}, nil
	}

	_, release, err = isolation.Acquire(ctx, source)
	if err != nil {
		return model.ValidationReport{}, func() {}, err
	}
	return report, release, nil
}

// analyzeWithBudget runs Engine.Analyze on its own goroutine and
// enforces budget.Total via a derived context.WithTimeout, since the
// Engine interface itself is synchronous (spec.md §5: "the symbolic
// engine is called synchronously... the orchestrator does not assume"
// internal concurrency). Canceling the derived context when the budget
// expires lets Analyze's own ctx-aware blocking points (the Mangle
// consistency checks explorePaths fans out) unwind instead of running
// on after this function has already returned. Returns timedOut=true
// rather than an error when the budget expires, per §4.5's "engine
// reports timeout -> status timeout".
func (o *Orchestrator) analyzeWithBudget(ctx context.Context, target engine.Target, opts engine.Options, budget governor.Budget) (result engine.Result, timedOut bool, err error) {
	budgetCtx, cancel := context.WithTimeout(ctx, budget.Total)
	defer cancel()

	resultCh := make(chan engine.Result, 1)
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("engine panic: %v", r)
			}
		}()
		res, analyzeErr := o.Engine.Analyze(budgetCtx, target, opts)
		if analyzeErr != nil {
			errCh <- analyzeErr
			return
		}
		resultCh <- res
	}()

	select {
	case res := <-resultCh:
		return res, false, nil
	case e := <-errCh:
		return engine.Result{}, false, e
	case <-budgetCtx.Done():
		return engine.Result{}, true, nil
	}
}

// recoverToRuntimeError turns any panic escaping a top-level operation
// into the RuntimeError taxonomy entry from spec.md §7, the catch-all
// backstop beneath every operation-specific error path. The panic value
// itself is not copied into the client-visible message.
func recoverToRuntimeError(status *string, errorType *model.ErrorKind, message *string) {
	if r := recover(); r != nil {
		log.Error("recovered panic: %v", r)
		*status = "error"
		*errorType = model.ErrRuntime
		*message = "internal error"
	}
}

func errorFromReport(report model.ValidationReport, start time.Time) (model.ErrorKind, string, float64) {
	kind := report.Kind
	if kind == "" {
		kind = model.ErrValidation
	}
	return kind, report.Message, model.NewTiming(start).TimeSeconds
}

// ContractCheck implements spec.md §4.5.3.
func (o *Orchestrator) ContractCheck(ctx context.Context, source, functionName string, timeoutSec int) (res model.ContractCheckResult) {
	start := time.Now()
	defer recoverToRuntimeError(&res.Status, &res.ErrorType, &res.Message)
	defer func() { res.TimeSeconds = model.NewTiming(start).TimeSeconds }()

	report, release, err := o.validateAndAcquire(ctx, source)
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrRuntime, err.Error()
		return res
	}
	defer release()
	if !report.OK {
		kind, msg, _ := errorFromReport(report, start)
		res.Status, res.ErrorType, res.Message = "error", kind, msg
		return res
	}

	paramNames, err := extractParamNames(source, functionName)
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrValue, err.Error()
		return res
	}

	budget := governor.NewBudget(o.Config, timeoutSec)
	opts := engine.Options{
		PerConditionTimeoutSec: budget.PerPath.Seconds(),
		PerPathTimeoutSec:      budget.PerPath.Seconds(),
		ContractStyles:         []string{"inline_assert", "docstring", "decorator", "type_hint"},
	}

	analyzed, timedOut, err := o.analyzeWithBudget(ctx, engine.Target{Source: source, FunctionName: functionName}, opts, budget)
	if timedOut {
		res.Status = "timeout"
		return res
	}
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrRuntime, maskedMessage(err)
		return res
	}

	res.PathsExplored = analyzed.PathsExplored
	res.PathsVerified = analyzed.PathsVerified
	res.CoverageEstimate = coverageEstimate(analyzed.PathsExplored, o.Config.Limits.CoverageExhaustiveThreshold)

	counterexamples := buildCounterexamples(analyzed.Messages, paramNames)
	if len(counterexamples) > 0 {
		res.Status = "counterexample"
		res.Counterexamples = counterexamples
		return res
	}

	res.Status = "verified"
	return res
}

// ExceptionPath implements spec.md §4.5.4.
func (o *Orchestrator) ExceptionPath(ctx context.Context, source, functionName, exceptionType string, timeoutSec int) (res model.ExceptionPathResult) {
	start := time.Now()
	defer recoverToRuntimeError(&res.Status, &res.ErrorType, &res.Message)
	defer func() { res.TimeSeconds = model.NewTiming(start).TimeSeconds }()

	report, release, err := o.validateAndAcquire(ctx, source)
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrRuntime, err.Error()
		return res
	}
	defer release()
	if !report.OK {
		kind, msg, _ := errorFromReport(report, start)
		res.Status, res.ErrorType, res.Message = "error", kind, msg
		return res
	}

	paramNames, err := extractParamNames(source, functionName)
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrValue, err.Error()
		return res
	}

	budget := governor.NewBudget(o.Config, timeoutSec)
	opts := engine.Options{
		PerConditionTimeoutSec: budget.PerPath.Seconds(),
		PerPathTimeoutSec:      budget.PerPath.Seconds(),
		ContractStyles:         []string{"inline_assert", "docstring", "decorator", "type_hint"},
	}

	analyzed, timedOut, err := o.analyzeWithBudget(ctx, engine.Target{Source: source, FunctionName: functionName}, opts, budget)
	if timedOut {
		res.Status = "timeout"
		return res
	}
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrRuntime, maskedMessage(err)
		return res
	}

	var triggering []model.Counterexample
	for _, msg := range analyzed.Messages {
		if msg.Kind != engine.ExecErr {
			continue
		}
		for _, off := range msg.OffendingInputs {
			if off.ExceptionName != exceptionType {
				continue
			}
			args, parseErr := parseArgsText(off.ArgsText, paramNames)
			if parseErr != nil {
				continue
			}
			triggering = append(triggering, model.Counterexample{
				Args:          args,
				Kwargs:        map[string]model.Scalar{},
				Violation:     off.ExceptionName,
				PathCondition: msg.PathCondition,
			})
		}
	}

	if len(triggering) > 0 {
		res.Status = "found"
		res.TriggeringInputs = triggering
		return res
	}
	res.Status = "unreachable"
	return res
}

// Equivalence implements spec.md §4.5.5.
func (o *Orchestrator) Equivalence(ctx context.Context, source, functionA, functionB string, timeoutSec int) (res model.EquivalenceResult) {
	start := time.Now()
	defer recoverToRuntimeError(&res.Status, &res.ErrorType, &res.Message)
	defer func() { res.TimeSeconds = model.NewTiming(start).TimeSeconds }()

	report, release, err := o.validateAndAcquire(ctx, source)
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrRuntime, err.Error()
		return res
	}
	defer release()
	if !report.OK {
		kind, msg, _ := errorFromReport(report, start)
		res.Status, res.ErrorType, res.Message = "error", kind, msg
		return res
	}

	paramsA, err := extractParamNames(source, functionA)
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrValue, err.Error()
		return res
	}
	paramsB, err := extractParamNames(source, functionB)
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrValue, err.Error()
		return res
	}

	common := commonParams(paramsA, paramsB)
	if len(common) == 0 {
		res.Status, res.ErrorType, res.Message = "error", model.ErrValue, "functions share no compatible parameters"
		return res
	}

	wrapperSource, wrapperName := synthesizeEquivalenceWrapper(source, functionA, functionB, common)

	defaultTimeout := timeoutSec
	if defaultTimeout <= 0 {
		defaultTimeout = o.Config.Limits.EquivalenceTimeoutSec
	}
	budget := governor.NewBudget(o.Config, defaultTimeout)
	opts := engine.Options{
		PerConditionTimeoutSec: budget.PerPath.Seconds(),
		PerPathTimeoutSec:      budget.PerPath.Seconds(),
		ContractStyles:         []string{"inline_assert"},
	}

	analyzed, timedOut, err := o.analyzeWithBudget(ctx, engine.Target{Source: wrapperSource, FunctionName: wrapperName}, opts, budget)
	if timedOut {
		// Never promote a timeout to equivalent or different.
		res.Status, res.ErrorType, res.Message = "error", model.ErrTimeout, "equivalence could not be decided within the time budget"
		return res
	}
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrRuntime, maskedMessage(err)
		return res
	}

	for _, msg := range analyzed.Messages {
		if msg.Kind != engine.PostFail {
			continue
		}
		if len(msg.OffendingInputs) == 0 {
			continue
		}
		args, parseErr := parseArgsText(msg.OffendingInputs[0].ArgsText, common)
		if parseErr != nil || len(args) == 0 {
			continue
		}
		first := args[common[0]]
		res.Status = "different"
		res.Confidence = "proven"
		res.DistinguishingInput = &first
		return res
	}

	res.Status = "equivalent"
	res.Confidence = "proven"
	return res
}

// BranchAnalysis implements spec.md §4.5.6.
func (o *Orchestrator) BranchAnalysis(ctx context.Context, source, functionName string, timeoutSec int, symbolicMode bool) (res model.BranchAnalysisResult) {
	start := time.Now()
	defer recoverToRuntimeError(&res.Status, &res.ErrorType, &res.Message)
	defer func() { res.TimeSeconds = model.NewTiming(start).TimeSeconds }()

	report, release, err := o.validateAndAcquire(ctx, source)
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrRuntime, err.Error()
		return res
	}
	defer release()
	if !report.OK {
		kind, msg, _ := errorFromReport(report, start)
		res.Status, res.ErrorType, res.Message = "error", kind, msg
		return res
	}

	tree, err := pyast.Parse(ctx, []byte(source))
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrSyntax, err.Error()
		return res
	}
	defer tree.Close()

	fn := pyast.FindFunction(tree.Root, tree, functionName)
	if fn == nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrValue, fmt.Sprintf("function %q not found", functionName)
		return res
	}

	branches, complexity := pyast.CollectBranches(tree, fn)
	res.Complexity = complexity

	records := make([]model.BranchRecord, len(branches))
	for i, b := range branches {
		records[i] = model.BranchRecord{
			Line:          b.Line,
			ConditionText: b.ConditionText,
			Reachability:  model.Unknown,
		}
	}

	if !symbolicMode {
		res.Branches = records
		res.Status = "analyzed"
		return res
	}

	budget := governor.NewBudget(o.Config, timeoutSec)
	opts := engine.Options{PerPathTimeoutSec: budget.PerPath.Seconds(), SymbolicMode: true}
	analyzed, timedOut, err := o.analyzeWithBudget(ctx, engine.Target{Source: source, FunctionName: functionName}, opts, budget)
	if timedOut {
		res.Branches = records
		res.Status = "timeout"
		return res
	}
	if err != nil {
		res.Status, res.ErrorType, res.Message = "error", model.ErrRuntime, maskedMessage(err)
		return res
	}

	unsat := map[string]bool{}
	for _, msg := range analyzed.Messages {
		if msg.Kind == engine.PreUnsat {
			unsat[msg.PathCondition] = true
		}
	}

	var deadLines []int
	for i, b := range branches {
		if conditionAlwaysUnsat(b.ConditionText, unsat) {
			records[i].Reachability = model.Unreachable
			deadLines = append(deadLines, b.Line)
		} else {
			records[i].Reachability = model.Reachable
		}
	}

	res.Branches = records
	res.DeadCodeLines = deadLines
	res.Status = "analyzed"
	return res
}

func conditionAlwaysUnsat(condition string, unsatPathConditions map[string]bool) bool {
	for pc := range unsatPathConditions {
		if pc == condition {
			return true
		}
	}
	return false
}

func buildCounterexamples(messages []engine.Message, paramNames []string) []model.Counterexample {
	var out []model.Counterexample
	for _, msg := range messages {
		if msg.Kind != engine.PostFail && msg.Kind != engine.ExecErr {
			continue
		}
		for _, off := range msg.OffendingInputs {
			args, err := parseArgsText(off.ArgsText, paramNames)
			if err != nil {
				log.Warn("discarding unparseable counterexample: %v", err)
				continue
			}
			violation := msg.MessageText
			if off.ExceptionName != "" {
				violation = off.ExceptionName
			}
			out = append(out, model.Counterexample{
				Args:          args,
				Kwargs:        map[string]model.Scalar{},
				Violation:     violation,
				ActualResult:  msg.MessageText,
				PathCondition: msg.PathCondition,
			})
		}
	}
	return out
}

// maskedMessage replaces an engine error with one fixed generic message
// before it reaches a client, so no part of the error text (file paths,
// stack traces, internal identifiers) is passed through, per spec.md §7's
// "stack traces and internal identifiers MUST NOT appear in message".
func maskedMessage(err error) string {
	return "analysis failed due to an internal engine error"
}
