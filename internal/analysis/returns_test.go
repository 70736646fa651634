package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantileReturnsEqualWeighted(t *testing.T) {
	symbols := []string{"A", "B", "C", "D"}
	factor := panelFrom(symbols, [][]float64{
		{0.1, 0.2, 0.3, 0.4},
	})
	forward := panelFrom(symbols, [][]float64{
		{0.01, 0.02, 0.03, 0.05},
	})

	buckets := NewBucketer(2).Assign(factor)
	qr := QuantileReturns(buckets, forward, 2)

	require.Equal(t, []string{"q0", "q1"}, qr.Symbols())
	assert.InDelta(t, 0.015, qr.At(0, 0), 1e-12) // mean(A, B)
	assert.InDelta(t, 0.040, qr.At(0, 1), 1e-12) // mean(C, D)
}

func TestQuantileReturnsEmptyBucketIsMissing(t *testing.T) {
	symbols := []string{"A", "B"}
	buckets := panelFrom(symbols, [][]float64{
		{0, 1},
	})
	// The top-bucket stock has no forward return, so q1 must be missing,
	// never zero.
	forward := panelFrom(symbols, [][]float64{
		{0.02, nan},
	})

	qr := QuantileReturns(buckets, forward, 2)

	assert.InDelta(t, 0.02, qr.At(0, 0), 1e-12)
	assert.True(t, math.IsNaN(qr.At(0, 1)))
}

func TestQuantileReturnsMatchesSymbolsByName(t *testing.T) {
	buckets := panelFrom([]string{"A", "B"}, [][]float64{
		{0, 1},
	})
	// Forward panel carries the same stocks in reverse column order.
	forward := panelFrom([]string{"B", "A"}, [][]float64{
		{0.05, 0.01},
	})

	qr := QuantileReturns(buckets, forward, 2)

	assert.InDelta(t, 0.01, qr.At(0, 0), 1e-12)
	assert.InDelta(t, 0.05, qr.At(0, 1), 1e-12)
}

func TestTopMinusBottom(t *testing.T) {
	qr := panelFrom([]string{"q0", "q1", "q2"}, [][]float64{
		{0.01, 0.02, 0.03},
		{0.02, nan, 0.01},
		{nan, 0.02, 0.04},
	})

	tmb := TopMinusBottom(qr)

	require.Equal(t, 3, tmb.Len())
	assert.InDelta(t, 0.02, tmb.Value(0), 1e-12)
	assert.InDelta(t, -0.01, tmb.Value(1), 1e-12)
	assert.True(t, math.IsNaN(tmb.Value(2)), "missing leg must stay missing")
}
