package analysis

import (
	"fmt"
	"math"

	"equity-factor-lab/internal/domain"
)

// QuantileReturns computes the equal-weighted forward return of each bucket
// per date. The result has one column per bucket, "q0" (bottom) through
// "q<K-1>" (top), on the bucket panel's date index. A date/bucket pair with
// no member stocks yields a missing cell, never zero, so downstream
// averaging stays missing-aware.
func QuantileReturns(buckets, forward *domain.Panel, quantiles int) *domain.Panel {
	cols := make([]string, quantiles)
	for q := range cols {
		cols[q] = fmt.Sprintf("q%d", q)
	}
	out := domain.NewPanel(buckets.Dates(), cols)

	// Map bucket-panel columns onto forward-return columns by symbol name;
	// the two panels may order symbols differently.
	fwdCol := make([]int, buckets.NumSymbols())
	for j, sym := range buckets.Symbols() {
		if fj, ok := forward.SymbolIndex(sym); ok {
			fwdCol[j] = fj
		} else {
			fwdCol[j] = -1
		}
	}

	fwdRow := make(map[int]int, forward.NumDates())
	{
		dateIdx := make(map[int64]int, forward.NumDates())
		for i, d := range forward.Dates() {
			dateIdx[d.UnixNano()] = i
		}
		for i, d := range buckets.Dates() {
			if fi, ok := dateIdx[d.UnixNano()]; ok {
				fwdRow[i] = fi
			}
		}
	}

	for i := 0; i < buckets.NumDates(); i++ {
		fi, ok := fwdRow[i]
		if !ok {
			continue
		}
		sums := make([]float64, quantiles)
		counts := make([]int, quantiles)
		row := buckets.Row(i)
		for j, bv := range row {
			if math.IsNaN(bv) || fwdCol[j] < 0 {
				continue
			}
			r := forward.At(fi, fwdCol[j])
			if math.IsNaN(r) {
				continue
			}
			q := int(bv)
			if q < 0 || q >= quantiles {
				continue
			}
			sums[q] += r
			counts[q]++
		}
		for q := 0; q < quantiles; q++ {
			if counts[q] > 0 {
				out.Set(i, q, sums[q]/float64(counts[q]))
			}
		}
	}

	return out
}

// TopMinusBottom derives the long-top/short-bottom return series from a
// quantile-return panel: last column minus first column per date. Dates
// where either leg is missing stay missing.
func TopMinusBottom(quantileReturns *domain.Panel) *domain.Series {
	out := domain.EmptySeries()
	last := quantileReturns.NumSymbols() - 1
	for i, d := range quantileReturns.Dates() {
		top := quantileReturns.At(i, last)
		bottom := quantileReturns.At(i, 0)
		out.Append(d, top-bottom) // NaN propagates when a leg is missing
	}
	return out
}
