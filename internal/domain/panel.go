package domain

import (
	"math"
	"time"
)

// Panel is a two-dimensional table of float64 values indexed by date (rows)
// and stock symbol (columns). Missing cells are NaN. Dates are ascending.
//
// Panels are created once and treated as read-only by every analyzer; each
// transform returns a new Panel instead of mutating its input.
type Panel struct {
	dates   []time.Time
	symbols []string
	cells   [][]float64 // [dateIdx][symbolIdx]
	symIdx  map[string]int
}

// NewPanel creates a panel with all cells missing.
func NewPanel(dates []time.Time, symbols []string) *Panel {
	p := &Panel{
		dates:   dates,
		symbols: symbols,
		cells:   make([][]float64, len(dates)),
		symIdx:  make(map[string]int, len(symbols)),
	}
	for i := range p.cells {
		row := make([]float64, len(symbols))
		for j := range row {
			row[j] = math.NaN()
		}
		p.cells[i] = row
	}
	for j, s := range symbols {
		p.symIdx[s] = j
	}
	return p
}

// Dates returns the date index. Callers must not modify it.
func (p *Panel) Dates() []time.Time { return p.dates }

// Symbols returns the column labels. Callers must not modify it.
func (p *Panel) Symbols() []string { return p.symbols }

// NumDates returns the number of rows.
func (p *Panel) NumDates() int { return len(p.dates) }

// NumSymbols returns the number of columns.
func (p *Panel) NumSymbols() int { return len(p.symbols) }

// At returns the cell at (dateIdx, symbolIdx). NaN means missing.
func (p *Panel) At(dateIdx, symbolIdx int) float64 {
	return p.cells[dateIdx][symbolIdx]
}

// Set writes the cell at (dateIdx, symbolIdx).
func (p *Panel) Set(dateIdx, symbolIdx int, v float64) {
	p.cells[dateIdx][symbolIdx] = v
}

// SymbolIndex returns the column index for a symbol.
func (p *Panel) SymbolIndex(symbol string) (int, bool) {
	j, ok := p.symIdx[symbol]
	return j, ok
}

// Row returns the cross-section at dateIdx. Callers must not modify it.
func (p *Panel) Row(dateIdx int) []float64 { return p.cells[dateIdx] }

// RowValidCount returns the number of non-missing cells at dateIdx.
func (p *Panel) RowValidCount(dateIdx int) int {
	n := 0
	for _, v := range p.cells[dateIdx] {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// ColumnValidCount returns the number of non-missing cells for symbolIdx.
func (p *Panel) ColumnValidCount(symbolIdx int) int {
	n := 0
	for i := range p.cells {
		if !math.IsNaN(p.cells[i][symbolIdx]) {
			n++
		}
	}
	return n
}

// Empty reports whether the panel has no rows or no columns.
func (p *Panel) Empty() bool {
	return p == nil || len(p.dates) == 0 || len(p.symbols) == 0
}

// SelectSymbols returns a new panel restricted to the given columns, in the
// given order. Unknown symbols become all-missing columns.
func (p *Panel) SelectSymbols(symbols []string) *Panel {
	out := NewPanel(p.dates, symbols)
	for j, s := range symbols {
		src, ok := p.symIdx[s]
		if !ok {
			continue
		}
		for i := range p.cells {
			out.cells[i][j] = p.cells[i][src]
		}
	}
	return out
}

// SelectDates returns a new panel restricted to rows whose dates appear in
// the given ascending date slice. Dates absent from the panel are skipped.
func (p *Panel) SelectDates(dates []time.Time) *Panel {
	idx := make(map[time.Time]int, len(p.dates))
	for i, d := range p.dates {
		idx[d] = i
	}
	var kept []time.Time
	var rows []int
	for _, d := range dates {
		if i, ok := idx[d]; ok {
			kept = append(kept, d)
			rows = append(rows, i)
		}
	}
	out := NewPanel(kept, p.symbols)
	for k, i := range rows {
		copy(out.cells[k], p.cells[i])
	}
	return out
}

// IntersectDates returns the ascending dates present in both panels.
func IntersectDates(a, b *Panel) []time.Time {
	set := make(map[time.Time]struct{}, b.NumDates())
	for _, d := range b.dates {
		set[d] = struct{}{}
	}
	var out []time.Time
	for _, d := range a.dates {
		if _, ok := set[d]; ok {
			out = append(out, d)
		}
	}
	return out
}
