package analysis

import (
	"math"

	"equity-factor-lab/internal/domain"
)

// Bucketer assigns each stock, per date, to one of K ordinal buckets based
// on its cross-sectional factor rank that day. Bucket K-1 holds the highest
// factor values, bucket 0 the lowest.
type Bucketer struct {
	Quantiles int
}

// NewBucketer creates a bucketer with K quantiles.
func NewBucketer(quantiles int) *Bucketer {
	return &Bucketer{Quantiles: quantiles}
}

// Assign produces the bucket panel for a factor panel. Dates with fewer than
// K valid observations are left entirely unassigned; missing input cells
// stay missing. Ranks use a stable first-seen tie-break, so the rank
// sequence is always 0..n-1 and cutting it into K bins by rank index yields
// exactly K non-empty buckets whenever a date is bucketed at all.
func (b *Bucketer) Assign(factor *domain.Panel) *domain.Panel {
	k := b.Quantiles
	out := domain.NewPanel(factor.Dates(), factor.Symbols())

	for i := 0; i < factor.NumDates(); i++ {
		row := factor.Row(i)

		var cols []int
		var values []float64
		for j, v := range row {
			if !math.IsNaN(v) {
				cols = append(cols, j)
				values = append(values, v)
			}
		}
		n := len(values)
		if n < k {
			continue
		}

		ranks := ranksOrdinal(values)
		for idx, col := range cols {
			bucket := ranks[idx] * k / n
			out.Set(i, col, float64(bucket))
		}
	}

	return out
}
