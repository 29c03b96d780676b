package mathutil_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/testdeck/testdeck/internal/mathutil"
)

func TestSafePercentage(t *testing.T) {
	assert.Equal(t, 0, mathutil.SafePercentage(0, 0), "zero over zero must not produce NaN")
	assert.Equal(t, 80, mathutil.SafePercentage(8, 10))
	assert.Equal(t, 100, mathutil.SafePercentage(10, 10))
	assert.Equal(t, 0, mathutil.SafePercentage(5, 0))
	assert.Equal(t, 0, mathutil.SafePercentage(-1, 10), "negative numerator is invalid input")
	assert.Equal(t, 33, mathutil.SafePercentage(1, 3), "result is rounded")
	assert.Equal(t, 67, mathutil.SafePercentage(2, 3))
}

func TestSafeRound(t *testing.T) {
	assert.Equal(t, 1.5, mathutil.SafeRound(1.45, 1))
	assert.Equal(t, 2.0, mathutil.SafeRound(1.96, 1))
	assert.Equal(t, 0.0, mathutil.SafeRound(math.NaN(), 1))
	assert.Equal(t, 0.0, mathutil.SafeRound(math.Inf(1), 2))
	assert.Equal(t, 3.0, mathutil.SafeRound(3.4, 0))
}

func TestSafeAverage(t *testing.T) {
	assert.Equal(t, 0.0, mathutil.SafeAverage(nil))
	assert.Equal(t, 2.0, mathutil.SafeAverage([]float64{1, 2, 3}))
	assert.Equal(t, 2.0, mathutil.SafeAverage([]float64{1, math.NaN(), 3}), "NaN entries are skipped")
	assert.Equal(t, 0.0, mathutil.SafeAverage([]float64{math.Inf(-1), math.NaN()}))
}

func TestSafeDivision(t *testing.T) {
	assert.Equal(t, 0.0, mathutil.SafeDivision(1, 0))
	assert.Equal(t, 2.5, mathutil.SafeDivision(5, 2))
	assert.Equal(t, 0.0, mathutil.SafeDivision(0, 0))
}

func TestIsSafeNumber(t *testing.T) {
	assert.True(t, mathutil.IsSafeNumber(0))
	assert.True(t, mathutil.IsSafeNumber(-12.5))
	assert.False(t, mathutil.IsSafeNumber(math.NaN()))
	assert.False(t, mathutil.IsSafeNumber(math.Inf(1)))
}
