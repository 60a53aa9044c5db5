package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symbolicd/internal/config"
	"symbolicd/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestValidate_AcceptsCleanSource(t *testing.T) {
	src := `
def add(a: int, b: int) -> int:
    if a > 0:
        return a + b
    return b
`
	report := Validate(context.Background(), src, testConfig(t))
	assert.True(t, report.OK)
}

func TestValidate_RejectsOversizedSource(t *testing.T) {
	cfg := testConfig(t)
	huge := "x = 1\n" + strings.Repeat("# padding\n", cfg.Limits.CodeSizeLimit)
	report := Validate(context.Background(), huge, cfg)
	assert.False(t, report.OK)
	assert.Equal(t, "size_limit", report.Rule)
}

func TestValidate_RejectsBlockedImport(t *testing.T) {
	src := "import os\n\ndef f():\n    return os.getcwd()\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "blocked_import", report.Rule)
	require.NotNil(t, report.Line)
	assert.Equal(t, 1, *report.Line)
}

func TestValidate_RejectsDisallowedImportNotOnAllowList(t *testing.T) {
	src := "import numpy\n\ndef f():\n    return 1\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "blocked_import", report.Rule)
}

func TestValidate_AllowsPolicyApprovedImport(t *testing.T) {
	src := "import math\n\ndef f(x):\n    return math.sqrt(x)\n"
	report := Validate(context.Background(), src, testConfig(t))
	assert.True(t, report.OK)
}

func TestValidate_RejectsDangerousBuiltinCall(t *testing.T) {
	src := "def f(code):\n    return eval(code)\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "dangerous_call", report.Rule)
}

func TestValidate_RejectsBlockedGlobal(t *testing.T) {
	src := "def f():\n    global __builtins__\n    return __builtins__\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "blocked_global", report.Rule)
}

// Supplemental scenario: sandbox escape via dunder attribute chain,
// caught by the generic attribute-name backstop (not R5, which targets
// the object rather than the attribute name).
func TestValidate_RejectsDunderClassChain(t *testing.T) {
	src := "def f():\n    return ().__class__.__bases__\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "dunder_access", report.Rule)
}

// R4: getattr(__builtins__, "eval") — callee is getattr and the first
// positional argument is a name referring to a blocked global.
func TestValidate_RejectsGetattrOnBlockedGlobal(t *testing.T) {
	src := "def f():\n    return getattr(__builtins__, \"eval\")\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "dynamic_builtins_access", report.Rule)
}

// R5: attribute access on a name referring to a blocked global, e.g.
// __builtins__.eval.
func TestValidate_RejectsAttributeAccessOnBlockedGlobal(t *testing.T) {
	src := "def f():\n    return __builtins__.eval(\"1\")\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "dynamic_builtins_access", report.Rule)
}

// R6: subscript on a name referring to a blocked global, e.g.
// __builtins__['eval'].
func TestValidate_RejectsSubscriptOnBlockedGlobal(t *testing.T) {
	src := "def f():\n    return __builtins__['eval'](\"1\")\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "dynamic_builtins_access", report.Rule)
}

// R7: subscript whose value expression is a list/tuple/dict literal
// that contains a reference to a dangerous builtin, e.g. [eval][0].
// This is the exact spec.md §8.4 scenario 4 adversarial input.
func TestValidate_RejectsLiteralHidingSubscript(t *testing.T) {
	src := "def f(x: int) -> int:\n    return [eval][0](\"1\")\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, model.ErrValidation, report.Kind)
	assert.Equal(t, "literal_hiding", report.Rule)
}

// Defense-in-depth scenario distinct from R7: "ev" + "al" assembling a
// dangerous name via string concatenation rather than a subscript.
func TestValidate_RejectsStringConcatHiding(t *testing.T) {
	src := "def f():\n    name = \"ev\" + \"al\"\n    return name\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "string_concat_hiding", report.Rule)
}

// R8: short-circuit-hiding bypass — "(True or __import__)(...)".
func TestValidate_RejectsShortCircuitHiddenCall(t *testing.T) {
	src := "def f():\n    return (True or __import__)(\"os\")\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "short_circuit", report.Rule)
}

func TestValidate_ReportsSyntaxErrorLine(t *testing.T) {
	src := "def f(:\n    pass\n"
	report := Validate(context.Background(), src, testConfig(t))
	require.False(t, report.OK)
	assert.Equal(t, "syntax_error", report.Rule)
	require.NotNil(t, report.Line)
}

// B1: boundary at exactly CodeSizeLimit must pass; CodeSizeLimit+1 must
// not.
func TestValidate_SizeLimitBoundary(t *testing.T) {
	cfg := testConfig(t)
	atLimit := "x = 1" + strings.Repeat(" ", cfg.Limits.CodeSizeLimit-len("x = 1"))
	require.Len(t, atLimit, cfg.Limits.CodeSizeLimit)
	report := Validate(context.Background(), atLimit, cfg)
	assert.NotEqual(t, "size_limit", report.Rule)

	overLimit := atLimit + "x"
	report = Validate(context.Background(), overLimit, cfg)
	assert.Equal(t, "size_limit", report.Rule)
}
