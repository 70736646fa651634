package performance

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-factor-lab/internal/domain"
)

func seriesOf(values ...float64) *domain.Series {
	out := domain.EmptySeries()
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		out.Append(base.AddDate(0, 0, i), v)
	}
	return out
}

func TestMetricsConstantReturnRoundTrip(t *testing.T) {
	r := 0.01
	n := 10
	values := make([]float64, n)
	for i := range values {
		values[i] = r
	}

	m := NewAnalyzer(0).Metrics(seriesOf(values...))

	require.NotNil(t, m)
	assert.InDelta(t, math.Pow(1+r, float64(n))-1, m.TotalReturn, 1e-12)
	assert.Equal(t, n, m.Observations)
	assert.Equal(t, 1.0, m.WinRate)
	assert.True(t, math.IsInf(m.ProfitFactor, 1), "no losses means infinite profit factor")
	assert.Equal(t, 0.0, m.MaxDrawdown, "monotone equity curve has no drawdown")
}

func TestMetricsFlatSeriesSentinels(t *testing.T) {
	m := NewAnalyzer(0.03).Metrics(seriesOf(0, 0, 0, 0, 0))

	require.NotNil(t, m)
	assert.Equal(t, 0.0, m.AnnualVolatility)
	assert.Equal(t, 0.0, m.SharpeRatio, "zero vol must report the 0 sentinel")
	assert.Equal(t, 0.0, m.CalmarRatio, "zero drawdown must report the 0 sentinel")
}

func TestMetricsEmptySeries(t *testing.T) {
	assert.Nil(t, NewAnalyzer(0).Metrics(domain.EmptySeries()))

	allMissing := seriesOf(math.NaN(), math.NaN())
	assert.Nil(t, NewAnalyzer(0).Metrics(allMissing))
}

func TestMaxDrawdown(t *testing.T) {
	// Up 10%, down 20%, up 5%: trough is 0.88 of the 1.10 peak.
	dd := MaxDrawdown([]float64{0.10, -0.20, 0.05})
	assert.InDelta(t, -0.20, dd, 1e-12)
	assert.LessOrEqual(t, dd, 0.0)
}

func TestMetricsSharpeUsesRiskFreeRate(t *testing.T) {
	values := []float64{0.01, -0.005, 0.02, 0.003, -0.01, 0.015}
	withRF := NewAnalyzer(0.03).Metrics(seriesOf(values...))
	noRF := NewAnalyzer(0).Metrics(seriesOf(values...))

	require.NotNil(t, withRF)
	require.NotNil(t, noRF)
	assert.Less(t, withRF.SharpeRatio, noRF.SharpeRatio)
	assert.InDelta(t, 0.03/withRF.AnnualVolatility, noRF.SharpeRatio-withRF.SharpeRatio, 1e-12)
}

func TestMetricsTailRisk(t *testing.T) {
	// 20 observations: the 5% quantile sits at the lower tail and CVaR
	// averages everything at or below it.
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i-10) / 100 // -0.10 .. 0.09
	}

	m := NewAnalyzer(0).Metrics(seriesOf(values...))

	require.NotNil(t, m)
	assert.InDelta(t, -0.0905, m.VaR95, 1e-12)
	assert.InDelta(t, -0.10, m.CVaR95, 1e-12)
	assert.LessOrEqual(t, m.CVaR95, m.VaR95)
}

func TestAlphaBetaPerfectTracking(t *testing.T) {
	bench := seriesOf(0.01, -0.02, 0.03, 0.005, -0.01)
	// Strategy is exactly benchmark times two.
	strat := seriesOf(0.02, -0.04, 0.06, 0.01, -0.02)

	rel := NewAnalyzer(0).AlphaBeta(strat, bench)

	require.NotNil(t, rel)
	assert.InDelta(t, 2.0, rel.Beta, 1e-12)
	assert.InDelta(t, 0.0, rel.Alpha, 1e-9)
	assert.Equal(t, 5, rel.Observations)
}

func TestAlphaBetaAlignsByDate(t *testing.T) {
	bench := seriesOf(0.01, 0.02, 0.03)
	strat := domain.EmptySeries()
	// Only the middle date overlaps with a valid value on both sides.
	strat.Append(bench.Date(0), math.NaN())
	strat.Append(bench.Date(1), 0.05)

	rel := NewAnalyzer(0).AlphaBeta(strat, bench)

	assert.Nil(t, rel, "fewer than 2 common observations")
}

func TestRollingWindows(t *testing.T) {
	s := seriesOf(0.01, 0.02, -0.01, 0.03)

	ret, vol, sharpe := NewAnalyzer(0).Rolling(s, 2)

	require.Equal(t, 4, ret.Len())
	assert.True(t, math.IsNaN(ret.Value(0)), "first window is incomplete")
	assert.InDelta(t, 1.01*1.02-1, ret.Value(1), 1e-12)
	assert.False(t, math.IsNaN(vol.Value(3)))
	assert.False(t, math.IsNaN(sharpe.Value(3)))
}
