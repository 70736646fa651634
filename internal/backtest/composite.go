package backtest

import (
	"fmt"
	"sort"
	"time"

	"equity-factor-lab/internal/domain"
)

// Composite blends the topN factors with the highest annualized
// top-minus-bottom Sharpe into one equal-weight portfolio: each constituent
// is backtested on its own and their return series are averaged point-wise.
// Factors without a summary never qualify; constituents whose individual
// backtest fails are dropped from the blend. Returns ErrNoConstituents when
// nothing qualifies.
func (b *Backtester) Composite(results []*domain.FactorTestResult, topN, rebalancePeriod int) (*domain.BacktestResult, error) {
	type candidate struct {
		result *domain.FactorTestResult
		sharpe float64
	}
	var candidates []candidate
	for _, r := range results {
		if r.Summary == nil || r.QuantileReturns.Empty() {
			continue
		}
		candidates = append(candidates, candidate{result: r, sharpe: r.Summary.TMBSharpe})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sharpe > candidates[j].sharpe
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	type leg struct {
		name    string
		returns *domain.Series
	}
	var legs []leg
	for _, c := range candidates {
		bt, err := b.RunSingle(c.result.QuantileReturns, c.result.FactorName, rebalancePeriod)
		if err != nil {
			continue
		}
		legs = append(legs, leg{name: c.result.FactorName, returns: bt.Returns})
	}
	if len(legs) == 0 {
		return nil, ErrNoConstituents
	}

	// Average point-wise over the union of constituent dates; a
	// constituent absent on a date contributes zero, mirroring the
	// zero-filled single-factor series.
	sums := make(map[time.Time]float64)
	for _, l := range legs {
		for i := 0; i < l.returns.Len(); i++ {
			sums[l.returns.Date(i)] += l.returns.Value(i)
		}
	}
	dates := make([]time.Time, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	returns := domain.EmptySeries()
	for _, d := range dates {
		returns.Append(d, sums[d]/float64(len(legs)))
	}

	cumulative := domain.EmptySeries()
	value := domain.EmptySeries()
	factor := 1.0
	for i := 0; i < returns.Len(); i++ {
		factor *= 1 + returns.Value(i)
		cumulative.Append(returns.Date(i), factor-1)
		value.Append(returns.Date(i), b.initialCapital*factor)
	}

	names := make([]string, len(legs))
	for i, l := range legs {
		names[i] = l.name
	}

	return &domain.BacktestResult{
		FactorName:        fmt.Sprintf("Composite_Top%d", topN),
		Returns:           returns,
		CumulativeReturns: cumulative,
		PortfolioValue:    value,
		Metrics:           b.analyzer.Metrics(returns),
		Constituents:      names,
	}, nil
}
