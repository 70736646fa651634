package analysis

import (
	"gonum.org/v1/gonum/stat"

	"equity-factor-lab/internal/domain"
)

// Tester runs the full evaluation pass for one factor: IC analysis,
// bucketing, quantile returns, top minus bottom, cross-sectional factor
// returns, and turnover, merged into one summary record.
type Tester struct {
	Quantiles       int
	MinCrossSection int
}

// NewTester creates a tester with K quantiles and the per-date
// cross-section floor used by the IC and regression passes.
func NewTester(quantiles, minCrossSection int) *Tester {
	return &Tester{Quantiles: quantiles, MinCrossSection: minCrossSection}
}

// BucketAndAggregate buckets the factor panel and aggregates per-bucket
// equal-weighted forward returns in one call.
func (t *Tester) BucketAndAggregate(factor, forward *domain.Panel) (buckets, quantileReturns *domain.Panel) {
	buckets = NewBucketer(t.Quantiles).Assign(factor)
	quantileReturns = QuantileReturns(buckets, forward, t.Quantiles)
	return buckets, quantileReturns
}

// Run evaluates one factor against its forward-return panel. When the IC
// pass produces zero valid observations the factor is untestable: the result
// carries a nil Summary and the caller must skip downstream processing.
// Everything computed up to that point (the IC series itself) is still
// returned for diagnostics.
func (t *Tester) Run(name string, factor, forward *domain.Panel) *domain.FactorTestResult {
	result := &domain.FactorTestResult{FactorName: name}

	power := NewPredictivePower(t.MinCrossSection)
	result.ICSeries = power.ICSeries(factor, forward)

	icValues := result.ICSeries.ValidValues()
	if len(icValues) == 0 {
		return result
	}

	buckets, quantileReturns := t.BucketAndAggregate(factor, forward)
	result.QuantileReturns = quantileReturns
	result.TopMinusBottom = TopMinusBottom(quantileReturns)
	result.ValidSymbols = factor.NumSymbols()

	summary := &domain.FactorSummary{}

	summary.ICMean = stat.Mean(icValues, nil)
	summary.ICStd = sampleStd(icValues)
	if summary.ICStd != 0 {
		summary.ICIR = summary.ICMean / summary.ICStd
	}
	summary.ICTStat = oneSampleTStat(icValues)
	positive := 0
	for _, v := range icValues {
		if v > 0 {
			positive++
		}
	}
	summary.ICPositiveRatio = float64(positive) / float64(len(icValues))
	summary.ICObservations = len(icValues)

	tmbValues := result.TopMinusBottom.ValidValues()
	if len(tmbValues) > 0 {
		summary.TMBMeanReturn = stat.Mean(tmbValues, nil)
		summary.TMBStd = sampleStd(tmbValues)
		summary.TMBSharpe = annualizedSharpe(summary.TMBMeanReturn, summary.TMBStd)
		summary.TMBTStat = oneSampleTStat(tmbValues)
		summary.TMBObservations = len(tmbValues)
	}

	factorReturns := power.FactorReturns(factor, forward).ValidValues()
	if len(factorReturns) > 0 {
		summary.FactorReturnMean = stat.Mean(factorReturns, nil)
		summary.FactorReturnStd = sampleStd(factorReturns)
		summary.FactorReturnSharpe = annualizedSharpe(summary.FactorReturnMean, summary.FactorReturnStd)
		summary.FactorReturnObservations = len(factorReturns)
	}

	turnover := Turnover(buckets).ValidValues()
	if len(turnover) > 0 {
		summary.AvgTurnover = stat.Mean(turnover, nil)
	}

	result.Summary = summary
	return result
}
