// Package performance converts return series into standard risk/return
// metrics: compounded returns, volatility, Sharpe, drawdown, tail risk, and
// benchmark-relative statistics.
package performance

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"equity-factor-lab/internal/domain"
)

// TradingDaysPerYear is the annualization base.
const TradingDaysPerYear = 252

// Analyzer scores return series. It is stateless apart from the configured
// risk-free rate, so one instance can score any number of series.
type Analyzer struct {
	RiskFreeRate float64 // annual
}

// NewAnalyzer creates an analyzer with the given annual risk-free rate.
func NewAnalyzer(riskFreeRate float64) *Analyzer {
	return &Analyzer{RiskFreeRate: riskFreeRate}
}

// Metrics computes the full metrics record for a return series. Missing
// observations are dropped first; a series with no valid observations yields
// nil. Every ratio uses the 0 sentinel when its denominator is zero, except
// ProfitFactor which is +Inf when there are no losing periods.
func (a *Analyzer) Metrics(returns *domain.Series) *domain.PerformanceMetrics {
	values := returns.ValidValues()
	n := len(values)
	if n == 0 {
		return nil
	}

	m := &domain.PerformanceMetrics{Observations: n}

	total := 1.0
	for _, r := range values {
		total *= 1 + r
	}
	m.TotalReturn = total - 1
	m.AnnualReturn = math.Pow(1+m.TotalReturn, TradingDaysPerYear/float64(n)) - 1

	std := 0.0
	if n > 1 {
		std = stat.StdDev(values, nil)
	}
	m.AnnualVolatility = std * math.Sqrt(TradingDaysPerYear)
	if m.AnnualVolatility != 0 {
		m.SharpeRatio = (m.AnnualReturn - a.RiskFreeRate) / m.AnnualVolatility
	}

	m.MaxDrawdown = MaxDrawdown(values)
	if m.MaxDrawdown != 0 {
		m.CalmarRatio = m.AnnualReturn / math.Abs(m.MaxDrawdown)
	}

	if n > 2 {
		m.Skewness = stat.Skew(values, nil)
	}
	if n > 3 {
		m.Kurtosis = stat.ExKurtosis(values, nil)
	}

	var wins int
	var gains, losses float64
	for _, r := range values {
		if r > 0 {
			wins++
			gains += r
		} else if r < 0 {
			losses += r
		}
	}
	m.WinRate = float64(wins) / float64(n)
	if losses != 0 {
		m.ProfitFactor = math.Abs(gains / losses)
	} else {
		m.ProfitFactor = math.Inf(1)
	}

	m.VaR95 = quantile(values, 0.05)
	m.CVaR95 = tailMean(values, m.VaR95)

	return m
}

// MaxDrawdown is the most negative peak-to-trough decline of the compounded
// equity curve, always <= 0.
func MaxDrawdown(values []float64) float64 {
	cum := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range values {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		dd := (cum - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// AlphaBeta regresses the series on a benchmark over their common dates.
// Beta is covariance over benchmark variance with the 0 sentinel; alpha is
// the annualized mean residual return. Returns nil when fewer than 2 common
// observations exist.
func (a *Analyzer) AlphaBeta(returns, benchmark *domain.Series) *domain.BenchmarkRelative {
	rs, bs := domain.AlignSeries(returns, benchmark)
	n := len(rs)
	if n < 2 {
		return nil
	}

	out := &domain.BenchmarkRelative{Observations: n}

	variance := stat.Variance(bs, nil)
	if variance != 0 {
		out.Beta = stat.Covariance(rs, bs, nil) / variance
	}
	out.Alpha = (stat.Mean(rs, nil) - out.Beta*stat.Mean(bs, nil)) * TradingDaysPerYear

	active := make([]float64, n)
	for i := range active {
		active[i] = rs[i] - bs[i]
	}
	trackingError := stat.StdDev(active, nil) * math.Sqrt(TradingDaysPerYear)
	if trackingError != 0 {
		out.InformationRatio = stat.Mean(active, nil) * TradingDaysPerYear / trackingError
	}

	return out
}

// Rolling computes windowed compounded return, annualized volatility, and
// their ratio over the series. Observations before a full window are
// missing. Missing input inside a window makes that window missing, keeping
// the three outputs aligned.
func (a *Analyzer) Rolling(returns *domain.Series, window int) (ret, vol, sharpe *domain.Series) {
	ret, vol, sharpe = domain.EmptySeries(), domain.EmptySeries(), domain.EmptySeries()

	for i := 0; i < returns.Len(); i++ {
		d := returns.Date(i)
		if i+1 < window {
			ret.Append(d, math.NaN())
			vol.Append(d, math.NaN())
			sharpe.Append(d, math.NaN())
			continue
		}

		win := returns.Values()[i+1-window : i+1]
		compounded := 1.0
		valid := true
		for _, r := range win {
			if math.IsNaN(r) {
				valid = false
				break
			}
			compounded *= 1 + r
		}
		if !valid {
			ret.Append(d, math.NaN())
			vol.Append(d, math.NaN())
			sharpe.Append(d, math.NaN())
			continue
		}

		wr := compounded - 1
		wv := stat.StdDev(win, nil) * math.Sqrt(TradingDaysPerYear)
		ret.Append(d, wr)
		vol.Append(d, wv)
		if wv != 0 {
			sharpe.Append(d, wr/wv)
		} else {
			sharpe.Append(d, math.NaN())
		}
	}
	return ret, vol, sharpe
}

// quantile is the empirical p-quantile with linear interpolation between
// order statistics.
func quantile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// tailMean averages the observations at or below the cutoff.
func tailMean(values []float64, cutoff float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v <= cutoff {
			sum += v
			n++
		}
	}
	if n == 0 {
		return cutoff
	}
	return sum / float64(n)
}
