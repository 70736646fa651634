package domain

import "time"

// FactorSummary is the flat record of scalar statistics produced by one
// comprehensive factor test. A zero value for a ratio field (ICIR, TMBSharpe,
// FactorReturnSharpe) is the "denominator was zero / insufficient data"
// sentinel, not a measured zero; consumers must consult the accompanying
// count and std fields to tell the two apart.
type FactorSummary struct {
	ICMean          float64
	ICStd           float64
	ICIR            float64
	ICTStat         float64
	ICPositiveRatio float64
	ICObservations  int

	TMBMeanReturn   float64
	TMBStd          float64
	TMBSharpe       float64
	TMBTStat        float64
	TMBObservations int

	FactorReturnMean         float64
	FactorReturnStd          float64
	FactorReturnSharpe       float64
	FactorReturnObservations int

	AvgTurnover float64
}

// FactorTestResult bundles everything one comprehensive test produced for a
// single factor.
type FactorTestResult struct {
	FactorName      string
	Summary         *FactorSummary
	ICSeries        *Series
	QuantileReturns *Panel // one column per bucket, first = bottom, last = top
	TopMinusBottom  *Series
	ValidSymbols    int
}

// FactorSummaryRecord is the persisted form of a factor summary.
type FactorSummaryRecord struct {
	FactorName   string
	CreatedAt    time.Time
	ValidSymbols int
	Summary      FactorSummary
}

// BacktestResult is the output of one long/short quantile backtest.
type BacktestResult struct {
	FactorName        string
	Returns           *Series
	CumulativeReturns *Series
	PortfolioValue    *Series
	Metrics           *PerformanceMetrics
	Constituents      []string // set only for composite results
}

// PerformanceMetrics are the standard risk/return statistics for one return
// series. Ratio fields use the 0 sentinel when their denominator (vol,
// drawdown) is zero; ProfitFactor is +Inf when there are no losing periods.
type PerformanceMetrics struct {
	TotalReturn      float64
	AnnualReturn     float64
	AnnualVolatility float64
	SharpeRatio      float64
	MaxDrawdown      float64 // <= 0
	CalmarRatio      float64
	Skewness         float64
	Kurtosis         float64
	WinRate          float64
	ProfitFactor     float64
	VaR95            float64
	CVaR95           float64
	Observations     int
}

// BenchmarkRelative are metrics of a return series measured against a
// benchmark series over their common dates.
type BenchmarkRelative struct {
	Alpha            float64
	Beta             float64
	InformationRatio float64
	Observations     int
}
