package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestComputeDropIsPositive(t *testing.T) {
	c := Compute(500000, 450000, nil, nil)

	assert.Equal(t, 50000.0, c.AbsoluteRON)
	require.NotNil(t, c.Percentage)
	assert.Equal(t, 10.0, *c.Percentage)
	assert.Nil(t, c.AbsoluteEUR)
}

func TestComputeIncreaseIsNegative(t *testing.T) {
	c := Compute(400000, 440000, nil, nil)

	assert.Equal(t, -40000.0, c.AbsoluteRON)
	require.NotNil(t, c.Percentage)
	assert.InDelta(t, -10.0, *c.Percentage, 1e-9)
}

func TestComputeEURDelta(t *testing.T) {
	c := Compute(500000, 450000, fptr(100000), fptr(90000))

	require.NotNil(t, c.AbsoluteEUR)
	assert.Equal(t, 10000.0, *c.AbsoluteEUR)
}

func TestComputeZeroOldPriceHasNoPercentage(t *testing.T) {
	c := Compute(0, 450000, nil, nil)

	assert.Nil(t, c.Percentage)
	assert.Equal(t, -450000.0, c.AbsoluteRON)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(100, 100, 0))
	assert.False(t, Equal(100, 100.01, 0))
	assert.True(t, Equal(100, 100.01, 0.05))
	assert.True(t, Equal(100.01, 100, 0.05))
	assert.False(t, Equal(100, 101, 0.05))
}
