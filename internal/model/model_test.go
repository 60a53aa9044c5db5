package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTiming_ReportsNonNegativeElapsed(t *testing.T) {
	start := time.Now().Add(-5 * time.Millisecond)
	timing := NewTiming(start)
	assert.Greater(t, timing.TimeSeconds, 0.0)
}

func TestScalarConstructors_SetMatchingKind(t *testing.T) {
	assert.Equal(t, ScalarInt, NewIntScalar(3).Kind)
	assert.Equal(t, ScalarBool, NewBoolScalar(true).Kind)
	assert.Equal(t, ScalarString, NewStringScalar("x").Kind)
	assert.Equal(t, ScalarNull, NullScalar().Kind)
}
