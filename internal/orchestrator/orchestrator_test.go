package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symbolicd/internal/config"
	"symbolicd/internal/engine"
	"symbolicd/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return New(testConfig(t), engine.NewMangleEngine())
}

// stubEngine lets tests drive the orchestrator's handling of engine
// timeouts and engine errors without depending on the reference
// engine's own enumeration behavior.
type stubEngine struct {
	result engine.Result
	err    error
	delay  time.Duration
}

func (s stubEngine) Analyze(ctx context.Context, target engine.Target, opts engine.Options) (engine.Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return engine.Result{}, ctx.Err()
		}
	}
	return s.result, s.err
}

func TestContractCheck_VerifiedWhenNoViolationsOnAnyPath(t *testing.T) {
	src := `
def clamp(x: int) -> int:
    if x < 0:
        assert x < 0
        return 0
    assert x >= 0
    return x
`
	o := newTestOrchestrator(t)
	res := o.ContractCheck(context.Background(), src, "clamp", 5)
	assert.Equal(t, "verified", res.Status)
	assert.GreaterOrEqual(t, res.PathsExplored, 1)
}

func TestContractCheck_CounterexampleOnContradictedAssert(t *testing.T) {
	src := `
def broken(x: int) -> int:
    if x > 0:
        assert x < 0
        return x
    return 0
`
	o := newTestOrchestrator(t)
	res := o.ContractCheck(context.Background(), src, "broken", 5)
	assert.Equal(t, "counterexample", res.Status)
	require.NotEmpty(t, res.Counterexamples)
}

func TestContractCheck_ErrorWhenValidationFails(t *testing.T) {
	src := `import os\nos.system("rm -rf /")`
	o := newTestOrchestrator(t)
	res := o.ContractCheck(context.Background(), src, "missing", 5)
	assert.Equal(t, "error", res.Status)
	assert.NotEmpty(t, res.ErrorType)
}

func TestContractCheck_ErrorWhenFunctionMissing(t *testing.T) {
	src := `
def foo(x: int) -> int:
    return x
`
	o := newTestOrchestrator(t)
	res := o.ContractCheck(context.Background(), src, "does_not_exist", 5)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, model.ErrValue, res.ErrorType)
}

func TestContractCheck_TimeoutSurfacedWhenEngineExceedsBudget(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, stubEngine{delay: 2 * time.Second})
	src := `
def f(x: int) -> int:
    return x
`
	res := o.ContractCheck(context.Background(), src, "f", 1)
	assert.Equal(t, "timeout", res.Status)
}

func TestContractCheck_EngineErrorSurfacedAsMaskedRuntimeError(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, stubEngine{err: assertionError("boom")})
	src := `
def f(x: int) -> int:
    return x
`
	res := o.ContractCheck(context.Background(), src, "f", 5)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, model.ErrRuntime, res.ErrorType)
	assert.NotContains(t, res.Message, "boom")
}

func TestExceptionPath_FoundWhenRaiseIsReachable(t *testing.T) {
	src := `
def divide(a: int, b: int) -> int:
    if b == 0:
        raise ZeroDivisionError("division by zero")
    return a // b
`
	o := newTestOrchestrator(t)
	res := o.ExceptionPath(context.Background(), src, "divide", "ZeroDivisionError", 5)
	assert.Equal(t, "found", res.Status)
	assert.NotEmpty(t, res.TriggeringInputs)
}

func TestExceptionPath_UnreachableWhenNoRaiseMatchesType(t *testing.T) {
	src := `
def safe(a: int) -> int:
    return a + 1
`
	o := newTestOrchestrator(t)
	res := o.ExceptionPath(context.Background(), src, "safe", "ValueError", 5)
	assert.Equal(t, "unreachable", res.Status)
}

func TestEquivalence_EquivalentWhenWrapperAssertionAlwaysHolds(t *testing.T) {
	src := `
def add_v1(a: int, b: int) -> int:
    return a + b

def add_v2(a: int, b: int) -> int:
    return b + a
`
	o := newTestOrchestrator(t)
	res := o.Equivalence(context.Background(), src, "add_v1", "add_v2", 5)
	assert.Equal(t, "equivalent", res.Status)
	assert.Equal(t, "proven", res.Confidence)
}

func TestEquivalence_ErrorWhenNoCommonParameters(t *testing.T) {
	src := `
def f(a: int) -> int:
    return a

def g(z: int) -> int:
    return z
`
	o := newTestOrchestrator(t)
	res := o.Equivalence(context.Background(), src, "f", "g", 5)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, model.ErrValue, res.ErrorType)
}

func TestEquivalence_NeverPromotesTimeoutToADecision(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, stubEngine{delay: 2 * time.Second})
	src := `
def f(a: int) -> int:
    return a

def g(a: int) -> int:
    return a
`
	res := o.Equivalence(context.Background(), src, "f", "g", 1)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, model.ErrTimeout, res.ErrorType)
}

func TestBranchAnalysis_StaticModeReportsUnknownReachability(t *testing.T) {
	src := `
def classify(x: int) -> str:
    if x < 0:
        return "neg"
    elif x == 0:
        return "zero"
    else:
        return "pos"
`
	o := newTestOrchestrator(t)
	res := o.BranchAnalysis(context.Background(), src, "classify", 5, false)
	assert.Equal(t, "analyzed", res.Status)
	require.NotEmpty(t, res.Branches)
	for _, b := range res.Branches {
		assert.Equal(t, model.Unknown, b.Reachability)
	}
	assert.Empty(t, res.DeadCodeLines)
	assert.GreaterOrEqual(t, res.Complexity, 2)
}

func TestBranchAnalysis_ErrorWhenFunctionMissing(t *testing.T) {
	src := `
def classify(x: int) -> str:
    return "x"
`
	o := newTestOrchestrator(t)
	res := o.BranchAnalysis(context.Background(), src, "missing", 5, false)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, model.ErrValue, res.ErrorType)
}

type assertionError string

func (e assertionError) Error() string { return string(e) }
