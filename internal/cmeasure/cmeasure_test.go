package cmeasure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinels(t *testing.T) {
	assert.True(t, Tiny().IsTiny())
	assert.True(t, Undefined().IsUndefined())
	assert.Zero(t, Tiny().Value())
}

func TestOfRejectsNegative(t *testing.T) {
	assert.Panics(t, func() { Of(-1) })
}

func TestOfValue(t *testing.T) {
	require.Equal(t, float64(42), Of(42).Value())
}

func TestUndefinedValuePanics(t *testing.T) {
	assert.Panics(t, func() { Undefined().Value() })
}
