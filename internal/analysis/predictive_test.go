package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICSeriesPerfectRankAgreement(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F"}
	factor := panelFrom(symbols, [][]float64{
		{6, 5, 4, 3, 2, 1},
		{1, 2, 3, 4, 5, 6},
	})
	// Forward returns rank identically to the factor on both dates.
	forward := panelFrom(symbols, [][]float64{
		{0.06, 0.05, 0.04, 0.03, 0.02, 0.01},
		{0.01, 0.02, 0.03, 0.04, 0.05, 0.06},
	})

	ic := NewPredictivePower(5).ICSeries(factor, forward)

	require.Equal(t, 2, ic.Len())
	assert.InDelta(t, 1.0, ic.Value(0), 1e-12)
	assert.InDelta(t, 1.0, ic.Value(1), 1e-12)
}

func TestICSeriesInvertedRanks(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F"}
	factor := panelFrom(symbols, [][]float64{
		{1, 2, 3, 4, 5, 6},
	})
	forward := panelFrom(symbols, [][]float64{
		{0.06, 0.05, 0.04, 0.03, 0.02, 0.01},
	})

	ic := NewPredictivePower(5).ICSeries(factor, forward)

	assert.InDelta(t, -1.0, ic.Value(0), 1e-12)
}

func TestICSeriesEnforcesCrossSectionFloor(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F"}
	factor := panelFrom(symbols, [][]float64{
		{1, 2, 3, 4, 5, nan}, // 5 valid pairs, not > 5
		{1, 2, 3, 4, 5, 6},
	})
	forward := panelFrom(symbols, [][]float64{
		{0.01, 0.02, 0.03, 0.04, 0.05, 0.06},
		{0.01, 0.02, 0.03, 0.04, 0.05, 0.06},
	})

	ic := NewPredictivePower(5).ICSeries(factor, forward)

	require.Equal(t, 2, ic.Len())
	assert.True(t, math.IsNaN(ic.Value(0)), "date at the floor must be missing")
	assert.False(t, math.IsNaN(ic.Value(1)))
}

func TestFactorReturnsRecoverSlope(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F"}
	factor := panelFrom(symbols, [][]float64{
		{1, 2, 3, 4, 5, 6},
	})
	// Returns are an exact linear function of the factor. After z-scoring
	// the factor, the OLS slope equals cov(f,r)/var(f) in standardized
	// units: 0.01 per raw factor unit times the factor's sample std.
	forward := panelFrom(symbols, [][]float64{
		{0.01, 0.02, 0.03, 0.04, 0.05, 0.06},
	})

	fr := NewPredictivePower(5).FactorReturns(factor, forward)

	raw := []float64{1, 2, 3, 4, 5, 6}
	wantSlope := 0.01 * sampleStd(raw)
	require.Equal(t, 1, fr.Len())
	assert.InDelta(t, wantSlope, fr.Value(0), 1e-12)
}

func TestFactorReturnsDegenerateCrossSection(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F"}
	factor := panelFrom(symbols, [][]float64{
		{2, 2, 2, 2, 2, 2}, // zero variance, z-score undefined
	})
	forward := panelFrom(symbols, [][]float64{
		{0.01, 0.02, 0.03, 0.04, 0.05, 0.06},
	})

	fr := NewPredictivePower(5).FactorReturns(factor, forward)

	assert.True(t, math.IsNaN(fr.Value(0)))
}
