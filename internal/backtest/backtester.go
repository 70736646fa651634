// Package backtest simulates periodically rebalanced long/short portfolios
// on top of aggregated quantile returns and blends the best factors into an
// equal-weight composite.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/performance"
)

var (
	// ErrEmptyPanel is returned when a factor has no quantile returns to
	// trade on.
	ErrEmptyPanel = errors.New("backtest: empty quantile-return panel")

	// ErrNotEnoughDates is returned when the panel spans fewer than two
	// rebalance dates, leaving no tradable period.
	ErrNotEnoughDates = errors.New("backtest: not enough dates for one rebalance period")

	// ErrNoConstituents is returned by the composite when no factor
	// qualifies for inclusion.
	ErrNoConstituents = errors.New("backtest: no qualifying composite constituents")
)

// Backtester runs long-top/short-bottom simulations over quantile-return
// panels. The last panel column is the top bucket, the first the bottom.
type Backtester struct {
	initialCapital  float64
	transactionCost float64 // flat rate per leg per rebalance
	analyzer        *performance.Analyzer
}

// NewBacktester creates a backtester with the given capital, per-leg
// transaction cost rate, and metrics analyzer.
func NewBacktester(initialCapital, transactionCost float64, analyzer *performance.Analyzer) *Backtester {
	return &Backtester{
		initialCapital:  initialCapital,
		transactionCost: transactionCost,
		analyzer:        analyzer,
	}
}

// RunSingle simulates one factor. Rebalance dates are every
// rebalancePeriod-th date of the panel index; each period holds the top
// bucket long and the bottom bucket short, earning their per-date spread.
// Opening the two legs costs twice the flat rate, charged against the first
// observation of every period after the first. Dates with a missing leg
// contribute zero. The run stops at the last rebalance date, which has no
// period after it.
func (b *Backtester) RunSingle(quantileReturns *domain.Panel, factorName string, rebalancePeriod int) (*domain.BacktestResult, error) {
	if quantileReturns.Empty() {
		return nil, fmt.Errorf("%w: factor %s", ErrEmptyPanel, factorName)
	}
	if rebalancePeriod < 1 {
		return nil, fmt.Errorf("backtest: rebalance period must be >= 1, got %d", rebalancePeriod)
	}

	dates := quantileReturns.Dates()
	var rebalance []int
	for i := 0; i < len(dates); i += rebalancePeriod {
		rebalance = append(rebalance, i)
	}
	if len(rebalance) < 2 {
		return nil, fmt.Errorf("%w: factor %s has %d dates at stride %d",
			ErrNotEnoughDates, factorName, len(dates), rebalancePeriod)
	}

	top := quantileReturns.NumSymbols() - 1
	values := make([]float64, len(dates))

	for p := 0; p+1 < len(rebalance); p++ {
		start, end := rebalance[p], rebalance[p+1]
		for i := start; i <= end; i++ {
			spread := quantileReturns.At(i, top) - quantileReturns.At(i, 0)
			if i == start && p > 0 {
				spread -= 2 * b.transactionCost
			}
			if math.IsNaN(spread) {
				spread = 0
			}
			values[i] = spread
		}
	}

	returns := domain.NewSeries(dates, values)
	cumulative := domain.EmptySeries()
	value := domain.EmptySeries()
	factor := 1.0
	for i, r := range values {
		factor *= 1 + r
		cumulative.Append(dates[i], factor-1)
		value.Append(dates[i], b.initialCapital*factor)
	}

	return &domain.BacktestResult{
		FactorName:        factorName,
		Returns:           returns,
		CumulativeReturns: cumulative,
		PortfolioValue:    value,
		Metrics:           b.analyzer.Metrics(returns),
	}, nil
}

// RunBatch simulates every factor in the batch, partitioning outcomes into
// successes and failures. One factor's failure never aborts its siblings;
// callers decide how to report the failure map. Factors with no summary are
// skipped as untestable.
func (b *Backtester) RunBatch(results []*domain.FactorTestResult, rebalancePeriod int) (map[string]*domain.BacktestResult, map[string]error) {
	successes := make(map[string]*domain.BacktestResult)
	failures := make(map[string]error)

	for _, r := range results {
		if r.Summary == nil || r.QuantileReturns.Empty() {
			continue
		}
		bt, err := b.RunSingle(r.QuantileReturns, r.FactorName, rebalancePeriod)
		if err != nil {
			failures[r.FactorName] = err
			continue
		}
		successes[r.FactorName] = bt
	}
	return successes, failures
}
