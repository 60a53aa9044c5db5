package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2048, cfg.Limits.MemoryLimitMB)
	assert.Equal(t, 65536, cfg.Limits.CodeSizeLimit)
	assert.Equal(t, 1000, cfg.Limits.CoverageExhaustiveThreshold)
	assert.Equal(t, 30, cfg.Limits.DefaultAnalysisTimeoutSec)
	assert.Equal(t, 60, cfg.Limits.EquivalenceTimeoutSec)
	assert.InDelta(t, 0.10, PerPathTimeoutRatio, 1e-9)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Limits.MemoryLimitMB)
}

func TestLoad_EnvOverrideWithinBounds(t *testing.T) {
	t.Setenv("SYMBOLIC_MEMORY_LIMIT_MB", "4096")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.Limits.MemoryLimitMB)
}

func TestLoad_EnvOverrideOutOfRangeFailsStartup(t *testing.T) {
	t.Setenv("SYMBOLIC_MEMORY_LIMIT_MB", "65537")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MemoryLimitMB")
}

func TestLoad_EnvOverrideNonNumericFallsBackToDefault(t *testing.T) {
	t.Setenv("SYMBOLIC_CODE_SIZE_LIMIT", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 65536, cfg.Limits.CodeSizeLimit)
}

func TestPolicy_AllowedAndBlockedModules(t *testing.T) {
	p := CompilePolicy()
	assert.True(t, p.IsAllowedModule("math"))
	assert.False(t, p.IsAllowedModule("os"))
	assert.False(t, p.IsAllowedModule("nonexistent_module"))
}

func TestPolicy_DangerousBuiltinsAndGlobals(t *testing.T) {
	p := CompilePolicy()
	assert.True(t, p.IsDangerousBuiltin("eval"))
	assert.True(t, p.IsDangerousBuiltin("open"))
	assert.False(t, p.IsDangerousBuiltin("len"))
	assert.True(t, p.IsBlockedGlobal("__builtins__"))
}

// B1: boundary at exactly CodeSizeLimit vs CodeSizeLimit+1 is exercised
// in the validator package, which owns the size check (spec.md §4.2).
func TestBounds_CoverageExhaustiveThresholdRange(t *testing.T) {
	t.Setenv("SYMBOLIC_COVERAGE_EXHAUSTIVE_THRESHOLD", "99")
	_, err := Load("")
	require.Error(t, err)

	t.Setenv("SYMBOLIC_COVERAGE_EXHAUSTIVE_THRESHOLD", "100")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Limits.CoverageExhaustiveThreshold)
}
