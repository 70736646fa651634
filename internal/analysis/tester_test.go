package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-factor-lab/internal/domain"
)

// perfectFactorFixture builds a panel pair where the factor ranks returns
// perfectly on every date, with enough breadth to clear the default
// cross-section floor.
func perfectFactorFixture(dates int) (factor, forward *domain.Panel) {
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	fRows := make([][]float64, dates)
	rRows := make([][]float64, dates)
	for i := range fRows {
		f := make([]float64, len(symbols))
		r := make([]float64, len(symbols))
		for j := range symbols {
			f[j] = float64(j + 1)
			r[j] = 0.01 * float64(j+1)
		}
		fRows[i] = f
		rRows[i] = r
	}
	return panelFrom(symbols, fRows), panelFrom(symbols, rRows)
}

func TestTesterPerfectFactor(t *testing.T) {
	factor, forward := perfectFactorFixture(10)

	result := NewTester(4, 5).Run("perfect", factor, forward)

	require.NotNil(t, result.Summary)
	s := result.Summary

	assert.InDelta(t, 1.0, s.ICMean, 1e-12)
	assert.InDelta(t, 0.0, s.ICStd, 1e-12)
	assert.Equal(t, 1.0, s.ICPositiveRatio)
	assert.Equal(t, 10, s.ICObservations)

	// Top bucket holds G,H (mean 0.075), bottom holds A,B (mean 0.015).
	assert.InDelta(t, 0.06, s.TMBMeanReturn, 1e-12)
	assert.Equal(t, 10, s.TMBObservations)

	// Identical cross sections every day, so no churn.
	assert.Equal(t, 0.0, s.AvgTurnover)
}

func TestTesterFlatSeriesUsesZeroSentinels(t *testing.T) {
	factor, forward := perfectFactorFixture(6)

	result := NewTester(4, 5).Run("flat", factor, forward)

	require.NotNil(t, result.Summary)
	s := result.Summary

	// IC is exactly 1.0 every date, so its std is 0. The ratio and t-stat
	// must report the 0 sentinel instead of Inf or NaN.
	assert.Equal(t, 0.0, s.ICIR)
	assert.Equal(t, 0.0, s.ICTStat)
	// Same for the constant TMB series.
	assert.Equal(t, 0.0, s.TMBSharpe)
	assert.Equal(t, 0.0, s.TMBTStat)
	assert.False(t, math.IsNaN(s.FactorReturnSharpe))
}

func TestTesterEmptyPanelIsUntestable(t *testing.T) {
	factor := domain.NewPanel(nil, nil)
	forward := domain.NewPanel(nil, nil)

	result := NewTester(5, 5).Run("empty", factor, forward)

	assert.Nil(t, result.Summary)
	assert.Equal(t, 0, result.ICSeries.Len())
	assert.Nil(t, result.QuantileReturns)
}

func TestTesterThinCrossSectionIsUntestable(t *testing.T) {
	// Two stocks never clear the > 5 intersection floor, so no IC date is
	// valid and the factor reports no summary at all.
	symbols := []string{"A", "B"}
	factor := panelFrom(symbols, [][]float64{
		{1, 2},
		{1, 2},
	})
	forward := panelFrom(symbols, [][]float64{
		{0.01, 0.02},
		{0.01, 0.02},
	})

	result := NewTester(2, 5).Run("thin", factor, forward)

	assert.Nil(t, result.Summary)
}

func TestTesterTwoStockScenario(t *testing.T) {
	// With the floor lowered, a two-stock panel where A always out-ranks
	// and out-performs B by one percent gives IC 1.0 every date and a mean
	// spread of exactly 0.01.
	symbols := []string{"A", "B"}
	rows := [][]float64{{2, 1}, {2, 1}, {2, 1}}
	rets := [][]float64{{0.02, 0.01}, {0.03, 0.02}, {0.015, 0.005}}
	factor := panelFrom(symbols, rows)
	forward := panelFrom(symbols, rets)

	result := NewTester(2, 1).Run("spread", factor, forward)

	require.NotNil(t, result.Summary)
	assert.InDelta(t, 1.0, result.Summary.ICMean, 1e-12)
	assert.InDelta(t, 0.01, result.Summary.TMBMeanReturn, 1e-12)
}

func TestBucketAndAggregateShapes(t *testing.T) {
	factor, forward := perfectFactorFixture(4)

	buckets, qr := NewTester(4, 5).BucketAndAggregate(factor, forward)

	assert.Equal(t, factor.NumSymbols(), buckets.NumSymbols())
	assert.Equal(t, []string{"q0", "q1", "q2", "q3"}, qr.Symbols())
	assert.Equal(t, 4, qr.NumDates())
}

func TestTesterIdempotent(t *testing.T) {
	factor, forward := perfectFactorFixture(8)
	tester := NewTester(4, 5)

	first := tester.Run("f", factor, forward)
	second := tester.Run("f", factor, forward)

	require.NotNil(t, first.Summary)
	require.NotNil(t, second.Summary)
	assert.Equal(t, *first.Summary, *second.Summary)
	assert.Equal(t, first.ICSeries.Values(), second.ICSeries.Values())
}

func TestTesterResultTimestampsFollowInput(t *testing.T) {
	factor, forward := perfectFactorFixture(5)

	result := NewTester(4, 5).Run("dates", factor, forward)

	require.NotNil(t, result.QuantileReturns)
	wantFirst := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, wantFirst, result.QuantileReturns.Dates()[0])
	assert.Equal(t, wantFirst, result.ICSeries.Date(0))
}
