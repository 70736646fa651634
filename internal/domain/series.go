package domain

import (
	"math"
	"time"
)

// Series is a one-dimensional float64 sequence indexed by ascending dates.
// Missing values are NaN.
type Series struct {
	dates  []time.Time
	values []float64
}

// NewSeries creates a series from parallel slices. Panics if lengths differ.
func NewSeries(dates []time.Time, values []float64) *Series {
	if len(dates) != len(values) {
		panic("domain: series dates and values length mismatch")
	}
	return &Series{dates: dates, values: values}
}

// EmptySeries creates a series with no observations.
func EmptySeries() *Series {
	return &Series{}
}

// Append adds an observation at the end. The caller is responsible for
// keeping dates ascending.
func (s *Series) Append(date time.Time, v float64) {
	s.dates = append(s.dates, date)
	s.values = append(s.values, v)
}

// Len returns the number of observations, missing included.
func (s *Series) Len() int { return len(s.values) }

// Date returns the date at index i.
func (s *Series) Date(i int) time.Time { return s.dates[i] }

// Value returns the value at index i.
func (s *Series) Value(i int) float64 { return s.values[i] }

// SetValue overwrites the value at index i.
func (s *Series) SetValue(i int, v float64) { s.values[i] = v }

// Dates returns the date index. Callers must not modify it.
func (s *Series) Dates() []time.Time { return s.dates }

// Values returns the raw values, NaN included. Callers must not modify it.
func (s *Series) Values() []float64 { return s.values }

// ValidValues returns the non-missing values in order.
func (s *Series) ValidValues() []float64 {
	out := make([]float64, 0, len(s.values))
	for _, v := range s.values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// DropMissing returns a new series holding only non-missing observations.
func (s *Series) DropMissing() *Series {
	out := EmptySeries()
	for i, v := range s.values {
		if !math.IsNaN(v) {
			out.Append(s.dates[i], v)
		}
	}
	return out
}

// FillMissing returns a new series with NaN values replaced by fill.
func (s *Series) FillMissing(fill float64) *Series {
	dates := make([]time.Time, len(s.dates))
	copy(dates, s.dates)
	values := make([]float64, len(s.values))
	for i, v := range s.values {
		if math.IsNaN(v) {
			values[i] = fill
		} else {
			values[i] = v
		}
	}
	return NewSeries(dates, values)
}

// AlignSeries returns the values of a and b restricted to their common
// dates, both sides non-missing, in ascending date order.
func AlignSeries(a, b *Series) (x, y []float64) {
	bIdx := make(map[time.Time]float64, b.Len())
	for i := 0; i < b.Len(); i++ {
		if !math.IsNaN(b.values[i]) {
			bIdx[b.dates[i]] = b.values[i]
		}
	}
	for i := 0; i < a.Len(); i++ {
		av := a.values[i]
		if math.IsNaN(av) {
			continue
		}
		if bv, ok := bIdx[a.dates[i]]; ok {
			x = append(x, av)
			y = append(y, bv)
		}
	}
	return x, y
}
