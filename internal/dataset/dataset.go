// Package dataset assembles raw daily bars into aligned panel bundles and
// derives the forward-return panel the analyzers consume.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"equity-factor-lab/internal/domain"
)

// ErrInsufficientStocks is returned when coverage filtering leaves too few
// symbols to bucket meaningfully.
var ErrInsufficientStocks = errors.New("dataset: insufficient stocks after coverage filtering")

// ErrNoBars is returned when a bundle is requested from an empty bar set.
var ErrNoBars = errors.New("dataset: no bars to assemble")

// BuildBundle pivots a flat bar slice into per-field panels sharing one
// ascending date index and one symbol set. Non-positive prices and
// zero-valued optional fields become missing cells.
func BuildBundle(bars []domain.Bar) (domain.PanelBundle, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	dateSet := make(map[time.Time]struct{})
	symbolSet := make(map[string]struct{})
	for _, b := range bars {
		dateSet[b.Date] = struct{}{}
		symbolSet[b.Symbol] = struct{}{}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	fields := []string{
		domain.FieldOpen, domain.FieldHigh, domain.FieldLow, domain.FieldClose,
		domain.FieldVolume, domain.FieldTurnover,
		domain.FieldPETTM, domain.FieldPBMRQ, domain.FieldPSTTM,
	}
	bundle := make(domain.PanelBundle, len(fields))
	for _, f := range fields {
		bundle[f] = domain.NewPanel(dates, symbols)
	}

	dateIdx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}

	setPositive := func(p *domain.Panel, i, j int, v float64) {
		if v > 0 {
			p.Set(i, j, v)
		}
	}
	for _, b := range bars {
		i := dateIdx[b.Date]
		j, ok := bundle[domain.FieldClose].SymbolIndex(b.Symbol)
		if !ok {
			continue
		}
		setPositive(bundle[domain.FieldOpen], i, j, b.Open)
		setPositive(bundle[domain.FieldHigh], i, j, b.High)
		setPositive(bundle[domain.FieldLow], i, j, b.Low)
		setPositive(bundle[domain.FieldClose], i, j, b.Close)
		setPositive(bundle[domain.FieldVolume], i, j, b.Volume)
		setPositive(bundle[domain.FieldTurnover], i, j, b.Turnover)
		setPositive(bundle[domain.FieldPETTM], i, j, b.PETTM)
		setPositive(bundle[domain.FieldPBMRQ], i, j, b.PBMRQ)
		setPositive(bundle[domain.FieldPSTTM], i, j, b.PSTTM)
	}

	return bundle, nil
}

// Clean forward-fills every panel in the bundle column by column, carrying
// the last valid observation across at most maxGap consecutive missing
// cells. Longer gaps stay missing so stale quotes cannot leak across
// suspensions.
func Clean(bundle domain.PanelBundle, maxGap int) domain.PanelBundle {
	out := make(domain.PanelBundle, len(bundle))
	for field, p := range bundle {
		filled := domain.NewPanel(p.Dates(), p.Symbols())
		for j := 0; j < p.NumSymbols(); j++ {
			last := math.NaN()
			gap := 0
			for i := 0; i < p.NumDates(); i++ {
				v := p.At(i, j)
				if !math.IsNaN(v) {
					last = v
					gap = 0
					filled.Set(i, j, v)
					continue
				}
				gap++
				if !math.IsNaN(last) && gap <= maxGap {
					filled.Set(i, j, last)
				}
			}
		}
		out[field] = filled
	}
	return out
}

// ForwardReturns derives the horizon-forward return panel from closes:
// cell (t, s) is the return of s from t to t+horizon. The final horizon
// rows have no future close and stay missing.
func ForwardReturns(close *domain.Panel, horizon int) *domain.Panel {
	out := domain.NewPanel(close.Dates(), close.Symbols())
	for j := 0; j < close.NumSymbols(); j++ {
		for i := 0; i+horizon < close.NumDates(); i++ {
			now, future := close.At(i, j), close.At(i+horizon, j)
			if math.IsNaN(now) || math.IsNaN(future) || now == 0 {
				continue
			}
			out.Set(i, j, future/now-1)
		}
	}
	return out
}

// FilterCoverage aligns a factor panel with the forward-return panel on
// their common dates and drops symbols observed on fewer than minPeriods
// dates. Returns ErrInsufficientStocks when fewer than minStocks symbols
// survive.
func FilterCoverage(factor, forward *domain.Panel, minPeriods, minStocks int) (alignedFactor, alignedForward *domain.Panel, err error) {
	common := domain.IntersectDates(factor, forward)
	f := factor.SelectDates(common)
	r := forward.SelectDates(common)

	var kept []string
	for j, sym := range f.Symbols() {
		if f.ColumnValidCount(j) > minPeriods {
			kept = append(kept, sym)
		}
	}
	if len(kept) < minStocks {
		return nil, nil, fmt.Errorf("%w: %d of %d required", ErrInsufficientStocks, len(kept), minStocks)
	}
	return f.SelectSymbols(kept), r.SelectSymbols(kept), nil
}
