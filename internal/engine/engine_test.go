package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMangleEngine_Analyze_ConfirmsSimpleGuardedAssert(t *testing.T) {
	src := `
def check(x):
    if x > 0:
        assert x > 0
    return x
`
	eng := NewMangleEngine()
	result, err := eng.Analyze(context.Background(), Target{Source: src, FunctionName: "check"}, Options{})
	require.NoError(t, err)
	assert.Greater(t, result.PathsExplored, 0)

	var sawConfirmed bool
	for _, m := range result.Messages {
		if m.Kind == Confirmed {
			sawConfirmed = true
		}
	}
	assert.True(t, sawConfirmed)
}

func TestMangleEngine_Analyze_ReportsPostFailForContradictedAssert(t *testing.T) {
	src := `
def broken(x):
    if x > 0:
        assert x < 0
    return x
`
	eng := NewMangleEngine()
	result, err := eng.Analyze(context.Background(), Target{Source: src, FunctionName: "broken"}, Options{})
	require.NoError(t, err)

	var sawPostFail bool
	for _, m := range result.Messages {
		if m.Kind == PostFail {
			sawPostFail = true
		}
	}
	assert.True(t, sawPostFail)
}

func TestMangleEngine_Analyze_ReportsExecErrForReachableRaise(t *testing.T) {
	src := `
def risky(x):
    if x < 0:
        raise ValueError("negative")
    return x
`
	eng := NewMangleEngine()
	result, err := eng.Analyze(context.Background(), Target{Source: src, FunctionName: "risky"}, Options{})
	require.NoError(t, err)

	var found *Message
	for i := range result.Messages {
		if result.Messages[i].Kind == ExecErr {
			found = &result.Messages[i]
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.OffendingInputs, 1)
	assert.Equal(t, "ValueError", found.OffendingInputs[0].ExceptionName)
}

func TestMangleEngine_Analyze_ErrorsOnMissingFunction(t *testing.T) {
	eng := NewMangleEngine()
	_, err := eng.Analyze(context.Background(), Target{Source: "def f(): pass", FunctionName: "missing"}, Options{})
	assert.Error(t, err)
}

func TestEnumerateAssignments_CapsAtLimit(t *testing.T) {
	conditions := make([]string, 10)
	for i := range conditions {
		conditions[i] = string(rune('a' + i))
	}
	assignments := enumerateAssignments(conditions, 16)
	assert.Len(t, assignments, 16)
}

func TestCheckConsistency_AcceptsConsistentAssignment(t *testing.T) {
	ok, err := checkConsistency(context.Background(), map[string]bool{"x > 0": true})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWitnessFor_PicksValueSatisfyingCondition(t *testing.T) {
	variable, value, ok := witnessFor("x > 0", true)
	require.True(t, ok)
	assert.Equal(t, "x", variable)
	assert.EqualValues(t, 1, value)

	variable, value, ok = witnessFor("x > 0", false)
	require.True(t, ok)
	assert.Equal(t, "x", variable)
	assert.EqualValues(t, 0, value)
}

func TestConcretizeNumericWitness_AgreesWithSolver(t *testing.T) {
	confidence := ConcretizeNumericWitness(context.Background(), "", "x", int64(1), "x > 0", true)
	assert.Equal(t, ConfidenceSupported, confidence)
}

func TestConcretizeNumericWitness_UnsupportedShapeIsUnverified(t *testing.T) {
	confidence := ConcretizeNumericWitness(context.Background(), "", "x", int64(1), "x > 0 and y < 5", true)
	assert.Equal(t, ConfidenceUnverified, confidence)
}
