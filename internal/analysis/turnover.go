package analysis

import (
	"math"

	"equity-factor-lab/internal/domain"
)

// Turnover measures day-over-day bucket-membership churn. For each
// consecutive date pair, take the stocks with a valid bucket assignment on
// both dates; the observation is the fraction of that intersection whose
// bucket changed. The series starts at the second date; dates with an empty
// intersection are missing.
func Turnover(buckets *domain.Panel) *domain.Series {
	out := domain.EmptySeries()
	for i := 1; i < buckets.NumDates(); i++ {
		prev := buckets.Row(i - 1)
		curr := buckets.Row(i)

		var both, changed int
		for j := range prev {
			if math.IsNaN(prev[j]) || math.IsNaN(curr[j]) {
				continue
			}
			both++
			if prev[j] != curr[j] {
				changed++
			}
		}

		if both > 0 {
			out.Append(buckets.Dates()[i], float64(changed)/float64(both))
		} else {
			out.Append(buckets.Dates()[i], math.NaN())
		}
	}
	return out
}
