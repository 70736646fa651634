package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnoverUnchangedPanelIsZero(t *testing.T) {
	buckets := panelFrom([]string{"A", "B", "C", "D"}, [][]float64{
		{0, 0, 1, 1},
		{0, 0, 1, 1},
		{0, 0, 1, 1},
	})

	turnover := Turnover(buckets)

	require.Equal(t, 2, turnover.Len(), "series starts at the second date")
	assert.Equal(t, 0.0, turnover.Value(0))
	assert.Equal(t, 0.0, turnover.Value(1))
}

func TestTurnoverCountsChangedFraction(t *testing.T) {
	buckets := panelFrom([]string{"A", "B", "C", "D"}, [][]float64{
		{0, 0, 1, 1},
		{1, 0, 1, 0}, // A and D switched, B and C stayed
	})

	turnover := Turnover(buckets)

	assert.InDelta(t, 0.5, turnover.Value(0), 1e-12)
}

func TestTurnoverIgnoresUnassignedStocks(t *testing.T) {
	buckets := panelFrom([]string{"A", "B", "C"}, [][]float64{
		{0, 1, nan},
		{1, 1, 0}, // C has no prior assignment, so only A and B count
	})

	turnover := Turnover(buckets)

	assert.InDelta(t, 0.5, turnover.Value(0), 1e-12)
}

func TestTurnoverEmptyIntersectionIsMissing(t *testing.T) {
	buckets := panelFrom([]string{"A", "B"}, [][]float64{
		{0, nan},
		{nan, 1},
	})

	turnover := Turnover(buckets)

	require.Equal(t, 1, turnover.Len())
	assert.True(t, math.IsNaN(turnover.Value(0)))
}

func TestTurnoverStaysInUnitInterval(t *testing.T) {
	buckets := panelFrom([]string{"A", "B", "C", "D", "E"}, [][]float64{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{4, 3, 2, 1, 0},
		{0, 1, 2, 3, 4},
	})

	turnover := Turnover(buckets)

	for i := 0; i < turnover.Len(); i++ {
		v := turnover.Value(i)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
