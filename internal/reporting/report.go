package reporting

import "time"

// Report is the rendered output of one factor study.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	FactorCount int

	// Factors that produced no valid IC observations and were skipped.
	UntestableFactors []string

	// Factor summary rows, sorted by TMB Sharpe descending.
	FactorRows []FactorSummaryRow

	// Backtest rows, sorted by Sharpe descending.
	BacktestRows []BacktestRow

	// Composite backtest, nil when no composite was run.
	Composite *BacktestRow

	// Pairwise factor correlations over common (date, stock) observations.
	// Row and column order follows CorrelationNames; empty when fewer than
	// two factors were testable.
	CorrelationNames []string
	Correlations     [][]float64

	// Risk metric rows, sorted by factor name.
	RiskRows []RiskRow

	// KeyFindings are interpretation lines derived from the tables.
	KeyFindings []string
}

// FactorSummaryRow is one row in the factor performance table.
type FactorSummaryRow struct {
	FactorName      string
	ICMean          float64
	ICIR            float64
	ICTStat         float64
	ICPositiveRatio float64
	ICObservations  int
	TMBAnnualReturn float64 // mean daily spread * 252
	TMBSharpe       float64
	TMBTStat        float64
	AvgTurnover     float64
	Significance    string // "***" / "**" / "*" / "" from |TMB t-stat|
}

// RiskRow is one row in the risk metrics table. MarketBeta is NaN when no
// benchmark series was available for the run.
type RiskRow struct {
	FactorName         string
	SortinoRatio       float64
	DownsideVolatility float64
	VaR95              float64
	CVaR95             float64
	MaxDrawdown        float64
	ICStability        float64
	ICDecayRate        float64
	MarketBeta         float64
}

// BacktestRow is one row in the backtest comparison table.
type BacktestRow struct {
	FactorName       string
	TotalReturn      float64
	AnnualReturn     float64
	AnnualVolatility float64
	SharpeRatio      float64
	MaxDrawdown      float64
	CalmarRatio      float64
	WinRate          float64
	Observations     int
	Constituents     []string // set only for the composite row
}
