// Package risk analyzes factor behavior beyond raw performance: pairwise
// factor correlation, IC stability over rolling windows, downside-adjusted
// ratios, and market exposure.
package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"equity-factor-lab/internal/domain"
)

const tradingDaysPerYear = 252

// minOverlap is the smallest paired sample any correlation or exposure
// estimate is computed from.
const minOverlap = 10

// Analyzer computes risk statistics. Stateless apart from the risk-free
// rate.
type Analyzer struct {
	RiskFreeRate float64 // annual
}

// NewAnalyzer creates a risk analyzer.
func NewAnalyzer(riskFreeRate float64) *Analyzer {
	return &Analyzer{RiskFreeRate: riskFreeRate}
}

// CorrelationMatrix computes pairwise Pearson correlations between factor
// panels over their common (date, stock) cells. Pairs with fewer than ten
// joint observations are NaN. The diagonal is 1. Order of the returned
// matrix follows the names slice.
func CorrelationMatrix(names []string, factors map[string]*domain.Panel) [][]float64 {
	n := len(names)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		matrix[i][i] = 1
		for j := i + 1; j < n; j++ {
			c := panelCorrelation(factors[names[i]], factors[names[j]])
			matrix[i][j] = c
			matrix[j][i] = c
		}
	}
	return matrix
}

func panelCorrelation(a, b *domain.Panel) float64 {
	if a.Empty() || b.Empty() {
		return math.NaN()
	}

	bRow := make(map[int64]int, b.NumDates())
	for i, d := range b.Dates() {
		bRow[d.UnixNano()] = i
	}

	var xs, ys []float64
	for i, d := range a.Dates() {
		bi, ok := bRow[d.UnixNano()]
		if !ok {
			continue
		}
		for j, sym := range a.Symbols() {
			bj, ok := b.SymbolIndex(sym)
			if !ok {
				continue
			}
			av, bv := a.At(i, j), b.At(bi, bj)
			if math.IsNaN(av) || math.IsNaN(bv) {
				continue
			}
			xs = append(xs, av)
			ys = append(ys, bv)
		}
	}
	if len(xs) <= minOverlap {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// StabilityMetrics describe how persistent a factor's predictive power is.
type StabilityMetrics struct {
	// Stability is 1 minus the dispersion of the rolling IC std relative
	// to the absolute rolling IC mean; 0 when the rolling mean is zero.
	Stability float64
	// DecayRate is the mean IC autocorrelation over lags 1..12.
	DecayRate float64
	// RollingAutocorr is the lag-1 autocorrelation of the rolling IC mean.
	RollingAutocorr float64
}

// Stability computes rolling-window IC persistence metrics. Returns nil when
// the series is shorter than the window.
func (a *Analyzer) Stability(ic *domain.Series, window int) *StabilityMetrics {
	values := ic.ValidValues()
	if len(values) < window {
		return nil
	}

	n := len(values) - window + 1
	rollingMean := make([]float64, n)
	rollingStd := make([]float64, n)
	for i := 0; i < n; i++ {
		win := values[i : i+window]
		rollingMean[i] = stat.Mean(win, nil)
		rollingStd[i] = sampleStd(win)
	}

	out := &StabilityMetrics{}
	meanOfMeans := stat.Mean(rollingMean, nil)
	if meanOfMeans != 0 {
		out.Stability = 1 - sampleStd(rollingStd)/math.Abs(meanOfMeans)
	}
	out.DecayRate = icDecay(values, 12)
	out.RollingAutocorr = autocorr(rollingMean, 1)
	return out
}

// icDecay averages the autocorrelation of the IC series over lags up to
// maxLag (capped at half the series length).
func icDecay(values []float64, maxLag int) float64 {
	if len(values) < maxLag {
		return 0
	}
	var sum float64
	var n int
	limit := maxLag
	if half := len(values) / 2; half < limit {
		limit = half
	}
	for lag := 1; lag < limit; lag++ {
		c := autocorr(values, lag)
		if !math.IsNaN(c) {
			sum += c
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func autocorr(values []float64, lag int) float64 {
	if lag <= 0 || len(values) <= lag+1 {
		return math.NaN()
	}
	return stat.Correlation(values[:len(values)-lag], values[lag:], nil)
}

func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// AdjustedMetrics are downside-aware performance ratios for one factor
// return series.
type AdjustedMetrics struct {
	SharpeRatio        float64
	SortinoRatio       float64
	MaxDrawdown        float64
	VaR95              float64
	CVaR95             float64
	DownsideVolatility float64
}

// RiskAdjusted computes downside-aware ratios for a return series. Missing
// values are dropped; nil is returned for an empty series. Ratios use the 0
// sentinel when their denominator is zero.
func (a *Analyzer) RiskAdjusted(returns *domain.Series) *AdjustedMetrics {
	values := returns.ValidValues()
	if len(values) == 0 {
		return nil
	}

	out := &AdjustedMetrics{}

	annualReturn := stat.Mean(values, nil) * tradingDaysPerYear
	annualVol := sampleStd(values) * math.Sqrt(tradingDaysPerYear)
	if annualVol != 0 {
		out.SharpeRatio = (annualReturn - a.RiskFreeRate) / annualVol
	}

	var downside []float64
	for _, v := range values {
		if v < 0 {
			downside = append(downside, v)
		}
	}
	out.DownsideVolatility = sampleStd(downside) * math.Sqrt(tradingDaysPerYear)
	if out.DownsideVolatility != 0 {
		out.SortinoRatio = (annualReturn - a.RiskFreeRate) / out.DownsideVolatility
	}

	cum := 1.0
	peak := 1.0
	for _, r := range values {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if dd := (cum - peak) / peak; dd < out.MaxDrawdown {
			out.MaxDrawdown = dd
		}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out.VaR95 = stat.Quantile(0.05, stat.Empirical, sorted, nil)
	var tail []float64
	for _, v := range values {
		if v <= out.VaR95 {
			tail = append(tail, v)
		}
	}
	if len(tail) > 0 {
		out.CVaR95 = stat.Mean(tail, nil)
	}

	return out
}

// MarketExposure regresses a factor's return series on market returns over
// their common dates. Returns nil when fewer than ten joint observations
// exist.
func (a *Analyzer) MarketExposure(factorReturns, marketReturns *domain.Series) *domain.BenchmarkRelative {
	fs, ms := domain.AlignSeries(factorReturns, marketReturns)
	if len(fs) <= minOverlap {
		return nil
	}

	out := &domain.BenchmarkRelative{Observations: len(fs)}
	variance := stat.Variance(ms, nil)
	if variance != 0 {
		out.Beta = stat.Covariance(fs, ms, nil) / variance
	}
	out.Alpha = (stat.Mean(fs, nil) - out.Beta*stat.Mean(ms, nil)) * tradingDaysPerYear

	active := make([]float64, len(fs))
	for i := range active {
		active[i] = fs[i] - ms[i]
	}
	te := sampleStd(active) * math.Sqrt(tradingDaysPerYear)
	if te != 0 {
		out.InformationRatio = stat.Mean(active, nil) * tradingDaysPerYear / te
	}
	return out
}
