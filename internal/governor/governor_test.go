package governor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symbolicd/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestApplyMemoryLimit_DoesNotError(t *testing.T) {
	cfg := testConfig(t)
	assert.NoError(t, ApplyMemoryLimit(cfg))
}

func TestNewBudget_UsesDefaultWhenUnspecified(t *testing.T) {
	cfg := testConfig(t)
	budget := NewBudget(cfg, 0)
	assert.Equal(t, time.Duration(cfg.Limits.DefaultAnalysisTimeoutSec)*time.Second, budget.Total)
}

// B3: timeout=1 must derive per_path=0.1s.
func TestNewBudget_PerPathCascadeBoundary(t *testing.T) {
	cfg := testConfig(t)
	budget := NewBudget(cfg, 1)
	assert.Equal(t, time.Second, budget.Total)
	assert.InDelta(t, 100*time.Millisecond, budget.PerPath, float64(time.Millisecond))
}

func TestNewBudget_ScalesPerPathWithTotal(t *testing.T) {
	cfg := testConfig(t)
	budget := NewBudget(cfg, 60)
	assert.Equal(t, 60*time.Second, budget.Total)
	assert.Equal(t, 6*time.Second, budget.PerPath)
}
