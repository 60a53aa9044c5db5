package mangle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
Decl import_stmt(Name, TopLevel)
  descr [mode("+", "+")].

Decl allowed_module(Name)
  descr [mode("+")].

Decl violation(Name)
  descr [mode("+")].

violation(Name) :-
  import_stmt(Name, TopLevel),
  :not(allowed_module(TopLevel)).
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.LoadSchemaString(testSchema))
	return e
}

func TestEngine_AddFactsAndQuery_NoViolationWhenAllowed(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "allowed_module", Args: []interface{}{"math"}},
		{Predicate: "import_stmt", Args: []interface{}{"math", "math"}},
	}))

	result, err := e.Query(context.Background(), "?violation(Name)")
	require.NoError(t, err)
	assert.Empty(t, result.Bindings)
}

func TestEngine_Query_FindsViolationForDisallowedImport(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "allowed_module", Args: []interface{}{"math"}},
		{Predicate: "import_stmt", Args: []interface{}{"os", "os"}},
	}))

	result, err := e.Query(context.Background(), "?violation(Name)")
	require.NoError(t, err)
	require.Len(t, result.Bindings, 1)
	assert.Equal(t, "os", result.Bindings[0]["Name"])
}

func TestEngine_AddFacts_RejectsUndeclaredPredicate(t *testing.T) {
	e := newTestEngine(t)
	err := e.AddFacts([]Fact{{Predicate: "nonexistent", Args: []interface{}{"x"}}})
	assert.Error(t, err)
}

func TestEngine_AddFacts_RejectsArityMismatch(t *testing.T) {
	e := newTestEngine(t)
	err := e.AddFacts([]Fact{{Predicate: "allowed_module", Args: []interface{}{"a", "b"}}})
	assert.Error(t, err)
}

func TestEngine_AddFacts_RespectsFactLimit(t *testing.T) {
	e, err := NewEngine(Config{FactLimit: 1, QueryTimeout: 5, AutoEval: true})
	require.NoError(t, err)
	require.NoError(t, e.LoadSchemaString(testSchema))

	require.NoError(t, e.AddFacts([]Fact{{Predicate: "allowed_module", Args: []interface{}{"math"}}}))
	err = e.AddFacts([]Fact{{Predicate: "allowed_module", Args: []interface{}{"json"}}})
	assert.Error(t, err)
}

func TestEngine_Query_TimesOutOnExpiredContext(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "allowed_module", Args: []interface{}{"math"}},
		{Predicate: "import_stmt", Args: []interface{}{"os", "os"}},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := e.Query(ctx, "?violation(Name)")
	assert.Error(t, err)
}

func TestEngine_Query_RejectsUndeclaredPredicate(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Query(context.Background(), "?nonexistent(X)")
	assert.Error(t, err)
}
