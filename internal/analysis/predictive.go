package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"equity-factor-lab/internal/domain"
)

// PredictivePower measures how well a factor forecasts forward returns,
// date by date, across the whole cross section.
type PredictivePower struct {
	// MinCrossSection is the strict lower bound on valid (factor, return)
	// pairs a date must have before it contributes an observation.
	MinCrossSection int
}

// NewPredictivePower creates the analyzer with the given cross-section floor.
func NewPredictivePower(minCrossSection int) *PredictivePower {
	return &PredictivePower{MinCrossSection: minCrossSection}
}

// alignedRow collects the valid (factor, return) pairs for one date, matching
// factor columns to forward-return columns by symbol name.
func alignedRow(factor, forward *domain.Panel, fwdCol []int, fwdRow, dateIdx int) (fs, rs []float64) {
	row := factor.Row(dateIdx)
	for j, fv := range row {
		if math.IsNaN(fv) || fwdCol[j] < 0 {
			continue
		}
		rv := forward.At(fwdRow, fwdCol[j])
		if math.IsNaN(rv) {
			continue
		}
		fs = append(fs, fv)
		rs = append(rs, rv)
	}
	return fs, rs
}

func columnMap(factor, forward *domain.Panel) []int {
	cols := make([]int, factor.NumSymbols())
	for j, sym := range factor.Symbols() {
		if fj, ok := forward.SymbolIndex(sym); ok {
			cols[j] = fj
		} else {
			cols[j] = -1
		}
	}
	return cols
}

func rowMap(factor, forward *domain.Panel) map[int]int {
	dateIdx := make(map[int64]int, forward.NumDates())
	for i, d := range forward.Dates() {
		dateIdx[d.UnixNano()] = i
	}
	rows := make(map[int]int, factor.NumDates())
	for i, d := range factor.Dates() {
		if fi, ok := dateIdx[d.UnixNano()]; ok {
			rows[i] = fi
		}
	}
	return rows
}

// ICSeries computes the per-date Spearman rank correlation between factor
// values and forward returns. Dates with too few valid pairs, or where either
// side has no rank variance, yield a missing observation.
func (p *PredictivePower) ICSeries(factor, forward *domain.Panel) *domain.Series {
	fwdCol := columnMap(factor, forward)
	fwdRow := rowMap(factor, forward)

	out := domain.EmptySeries()
	for i, d := range factor.Dates() {
		fi, ok := fwdRow[i]
		if !ok {
			out.Append(d, math.NaN())
			continue
		}
		fs, rs := alignedRow(factor, forward, fwdCol, fi, i)
		if len(fs) <= p.MinCrossSection {
			out.Append(d, math.NaN())
			continue
		}
		out.Append(d, spearman(fs, rs))
	}
	return out
}

// FactorReturns computes the per-date slope of a univariate OLS regression of
// forward returns on the z-scored factor cross section. The z-scoring makes
// slopes comparable across dates and factors. Dates with too few valid pairs
// or a degenerate (constant) factor cross section yield a missing
// observation.
func (p *PredictivePower) FactorReturns(factor, forward *domain.Panel) *domain.Series {
	fwdCol := columnMap(factor, forward)
	fwdRow := rowMap(factor, forward)

	out := domain.EmptySeries()
	for i, d := range factor.Dates() {
		fi, ok := fwdRow[i]
		if !ok {
			out.Append(d, math.NaN())
			continue
		}
		fs, rs := alignedRow(factor, forward, fwdCol, fi, i)
		if len(fs) <= p.MinCrossSection {
			out.Append(d, math.NaN())
			continue
		}
		if !zscore(fs) {
			out.Append(d, math.NaN())
			continue
		}
		_, beta := stat.LinearRegression(fs, rs, nil, false)
		out.Append(d, beta)
	}
	return out
}
