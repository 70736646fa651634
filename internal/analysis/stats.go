// Package analysis implements the factor evaluation core: cross-sectional
// quantile bucketing, quantile portfolio returns, information-coefficient
// and factor-return series, turnover, and the comprehensive tester that
// aggregates them into one summary record.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization base for Sharpe ratios and
// volatility.
const TradingDaysPerYear = 252

// ranksOrdinal assigns each value its ascending rank 0..n-1, breaking ties
// by first-seen position. Input must not contain NaN.
func ranksOrdinal(values []float64) []int {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})
	ranks := make([]int, n)
	for r, i := range order {
		ranks[i] = r
	}
	return ranks
}

// ranksAverage assigns 1-based ranks with ties receiving the mean of the
// ranks they span, matching the convention used for Spearman correlation.
// Input must not contain NaN.
func ranksAverage(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		// Positions i..j share the same value; average their 1-based ranks.
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// spearman computes the Spearman rank correlation of two aligned vectors.
// Returns NaN for degenerate (zero-variance) input.
func spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(ranksAverage(x), ranksAverage(y), nil)
}

// sampleStd is the n-1 standard deviation, 0 for fewer than 2 observations.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// oneSampleTStat computes the t statistic of values against a zero mean.
// Returns 0 for fewer than 2 observations or zero variance.
func oneSampleTStat(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	std := stat.StdDev(values, nil)
	if std == 0 {
		return 0
	}
	return stat.Mean(values, nil) / (std / math.Sqrt(float64(n)))
}

// annualizedSharpe is mean/std * sqrt(252), with the 0 sentinel when std is
// zero.
func annualizedSharpe(mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(TradingDaysPerYear)
}

// zscore standardizes values in place to zero mean and unit standard
// deviation. Returns false when the standard deviation is zero.
func zscore(values []float64) bool {
	std := sampleStd(values)
	if std == 0 {
		return false
	}
	mean := stat.Mean(values, nil)
	for i := range values {
		values[i] = (values[i] - mean) / std
	}
	return true
}
