package factors

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"equity-factor-lab/internal/domain"
)

// Column-wise panel transforms shared by the factor implementations. All of
// them return new panels on the input's index; missing cells propagate.

// pctChange computes (x[t] / x[t-lag]) - 1 per column.
func pctChange(p *domain.Panel, lag int) *domain.Panel {
	out := domain.NewPanel(p.Dates(), p.Symbols())
	for j := 0; j < p.NumSymbols(); j++ {
		for i := lag; i < p.NumDates(); i++ {
			curr, prev := p.At(i, j), p.At(i-lag, j)
			if math.IsNaN(curr) || math.IsNaN(prev) || prev == 0 {
				continue
			}
			out.Set(i, j, curr/prev-1)
		}
	}
	return out
}

// shift moves every column down by lag rows.
func shift(p *domain.Panel, lag int) *domain.Panel {
	out := domain.NewPanel(p.Dates(), p.Symbols())
	for j := 0; j < p.NumSymbols(); j++ {
		for i := lag; i < p.NumDates(); i++ {
			out.Set(i, j, p.At(i-lag, j))
		}
	}
	return out
}

// diff computes x[t] - x[t-1] per column.
func diff(p *domain.Panel) *domain.Panel {
	out := domain.NewPanel(p.Dates(), p.Symbols())
	for j := 0; j < p.NumSymbols(); j++ {
		for i := 1; i < p.NumDates(); i++ {
			curr, prev := p.At(i, j), p.At(i-1, j)
			if math.IsNaN(curr) || math.IsNaN(prev) {
				continue
			}
			out.Set(i, j, curr-prev)
		}
	}
	return out
}

// rollingApply computes fn over each full trailing window per column. A
// window containing any missing value yields a missing cell.
func rollingApply(p *domain.Panel, window int, fn func([]float64) float64) *domain.Panel {
	out := domain.NewPanel(p.Dates(), p.Symbols())
	buf := make([]float64, window)
	for j := 0; j < p.NumSymbols(); j++ {
		for i := window - 1; i < p.NumDates(); i++ {
			valid := true
			for k := 0; k < window; k++ {
				v := p.At(i-window+1+k, j)
				if math.IsNaN(v) {
					valid = false
					break
				}
				buf[k] = v
			}
			if valid {
				out.Set(i, j, fn(buf))
			}
		}
	}
	return out
}

func rollingMean(p *domain.Panel, window int) *domain.Panel {
	return rollingApply(p, window, func(win []float64) float64 {
		return stat.Mean(win, nil)
	})
}

func rollingStd(p *domain.Panel, window int) *domain.Panel {
	return rollingApply(p, window, func(win []float64) float64 {
		return stat.StdDev(win, nil)
	})
}

// ewm computes the exponentially weighted mean per column for the given
// span. Weights decay across missing rows; missing rows carry the last mean
// forward once one valid observation has been seen.
func ewm(p *domain.Panel, span int) *domain.Panel {
	alpha := 2 / (float64(span) + 1)
	out := domain.NewPanel(p.Dates(), p.Symbols())
	for j := 0; j < p.NumSymbols(); j++ {
		var num, den float64
		seen := false
		for i := 0; i < p.NumDates(); i++ {
			num *= 1 - alpha
			den *= 1 - alpha
			v := p.At(i, j)
			if !math.IsNaN(v) {
				num += v
				den++
				seen = true
			}
			if seen {
				out.Set(i, j, num/den)
			}
		}
	}
	return out
}

// inverse computes 1/x per cell, mapping zero input to missing.
func inverse(p *domain.Panel) *domain.Panel {
	out := domain.NewPanel(p.Dates(), p.Symbols())
	for j := 0; j < p.NumSymbols(); j++ {
		for i := 0; i < p.NumDates(); i++ {
			v := p.At(i, j)
			if math.IsNaN(v) || v == 0 {
				continue
			}
			out.Set(i, j, 1/v)
		}
	}
	return out
}

// elementwise applies fn cell by cell to aligned panels, skipping cells
// where any input is missing. All panels must share the first panel's shape.
func elementwise(fn func(...float64) float64, panels ...*domain.Panel) *domain.Panel {
	base := panels[0]
	out := domain.NewPanel(base.Dates(), base.Symbols())
	args := make([]float64, len(panels))
	for i := 0; i < base.NumDates(); i++ {
		for j := 0; j < base.NumSymbols(); j++ {
			valid := true
			for k, p := range panels {
				v := p.At(i, j)
				if math.IsNaN(v) {
					valid = false
					break
				}
				args[k] = v
			}
			if valid {
				out.Set(i, j, fn(args...))
			}
		}
	}
	return out
}

// meanOf averages aligned panels cell by cell, ignoring missing inputs. A
// cell missing in every panel stays missing.
func meanOf(panels ...*domain.Panel) *domain.Panel {
	base := panels[0]
	out := domain.NewPanel(base.Dates(), base.Symbols())
	for i := 0; i < base.NumDates(); i++ {
		for j := 0; j < base.NumSymbols(); j++ {
			var sum float64
			var n int
			for _, p := range panels {
				v := p.At(i, j)
				if !math.IsNaN(v) {
					sum += v
					n++
				}
			}
			if n > 0 {
				out.Set(i, j, sum/float64(n))
			}
		}
	}
	return out
}

// Winsorize clips each date's cross-section at its lower and upper empirical
// quantiles, damping the influence of outliers before bucketing.
func Winsorize(p *domain.Panel, lower, upper float64) *domain.Panel {
	out := domain.NewPanel(p.Dates(), p.Symbols())
	for i := 0; i < p.NumDates(); i++ {
		var values []float64
		for j := 0; j < p.NumSymbols(); j++ {
			if v := p.At(i, j); !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)
		lo := interpQuantile(values, lower)
		hi := interpQuantile(values, upper)
		for j := 0; j < p.NumSymbols(); j++ {
			v := p.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if v < lo {
				v = lo
			} else if v > hi {
				v = hi
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// interpQuantile is the linearly interpolated p-quantile of a sorted slice.
func interpQuantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
