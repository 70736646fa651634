package analysis

import (
	"math"
	"time"

	"equity-factor-lab/internal/domain"
)

func testDates(n int) []time.Time {
	out := make([]time.Time, n)
	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = base.AddDate(0, 0, i)
	}
	return out
}

// panelFrom builds a panel from per-date rows; NaN cells stay missing.
func panelFrom(symbols []string, rows [][]float64) *domain.Panel {
	p := domain.NewPanel(testDates(len(rows)), symbols)
	for i, row := range rows {
		for j, v := range row {
			if !math.IsNaN(v) {
				p.Set(i, j, v)
			}
		}
	}
	return p
}

var nan = math.NaN()
