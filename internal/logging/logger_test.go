package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_DebugModeGatesDebugLogs(t *testing.T) {
	require.NoError(t, Configure(false, "text", t.TempDir()))
	assert.False(t, IsDebugMode())

	require.NoError(t, Configure(true, "json", t.TempDir()))
	assert.True(t, IsDebugMode())
}

func TestGet_ReturnsStableLoggerPerCategory(t *testing.T) {
	require.NoError(t, Configure(true, "text", t.TempDir()))
	a := Get(CategoryValidator)
	b := Get(CategoryValidator)
	assert.Same(t, a, b)

	c := Get(CategoryEngine)
	assert.NotSame(t, a, c)
}

func TestTimer_StopReturnsNonNegativeElapsed(t *testing.T) {
	require.NoError(t, Configure(false, "text", t.TempDir()))
	timer := StartTimer(CategoryOrchestrator, "contract_check")
	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed, 0.0)
}

func TestRequestLogger_DoesNotPanic(t *testing.T) {
	require.NoError(t, Configure(true, "text", t.TempDir()))
	rl := Get(CategoryIsolation).WithRequestID("mcp_temp_abc123")
	assert.NotPanics(t, func() {
		rl.Info("unit acquired")
		rl.Debug("scratch dir %s", "/tmp/x")
	})
}
