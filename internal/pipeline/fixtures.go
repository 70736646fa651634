package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/storage"
)

// Fixture dimensions: enough symbols for five quantiles and enough dates for
// monthly lookbacks plus a forward-return horizon.
const (
	fixtureSymbolCount = 30
	fixtureDayCount    = 300
	fixtureSeed        = 42
)

// FixtureSecurities returns the deterministic fixture universe.
func FixtureSecurities() []domain.Security {
	secs := make([]domain.Security, fixtureSymbolCount)
	for i := range secs {
		exchange := "sh"
		if i%2 == 1 {
			exchange = "sz"
		}
		secs[i] = domain.Security{
			Symbol:   fmt.Sprintf("%s.%06d", exchange, 600000+i),
			Name:     fmt.Sprintf("Fixture Stock %02d", i),
			Exchange: exchange,
			ListedAt: time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC),
		}
	}
	return secs
}

// FixtureBars generates deterministic daily bars: geometric random walks with
// per-symbol drift so ranking factors have real cross-sectional structure.
// Valuation fields drift slowly; every 40th symbol-day drops its valuation
// fields to exercise missing-data handling.
func FixtureBars() []domain.Bar {
	rng := rand.New(rand.NewSource(fixtureSeed))
	secs := FixtureSecurities()
	dates := fixtureDates(fixtureDayCount)

	bars := make([]domain.Bar, 0, len(secs)*len(dates))
	for si, sec := range secs {
		price := 20.0 + 5.0*float64(si%7)
		drift := (float64(si)/float64(len(secs)) - 0.5) * 0.002
		pe := 10.0 + 2.0*float64(si%12)
		pb := 1.0 + 0.3*float64(si%8)
		ps := 2.0 + 0.5*float64(si%6)

		for di, date := range dates {
			ret := drift + rng.NormFloat64()*0.02
			price *= 1 + ret
			if price < 1 {
				price = 1
			}

			high := price * (1 + math.Abs(rng.NormFloat64())*0.008)
			low := price * (1 - math.Abs(rng.NormFloat64())*0.008)
			open := low + rng.Float64()*(high-low)

			bar := domain.Bar{
				Symbol:   sec.Symbol,
				Date:     date,
				Open:     open,
				High:     high,
				Low:      low,
				Close:    price,
				Volume:   float64(500_000 + rng.Intn(2_000_000)),
				Turnover: 0.5 + rng.Float64()*3,
			}
			if (si*fixtureDayCount+di)%40 != 0 {
				bar.PETTM = pe * (1 + rng.NormFloat64()*0.01)
				bar.PBMRQ = pb * (1 + rng.NormFloat64()*0.01)
				bar.PSTTM = ps * (1 + rng.NormFloat64()*0.01)
			}
			bars = append(bars, bar)
		}
	}
	return bars
}

// LoadFixtures populates the stores with the deterministic fixture data.
func LoadFixtures(ctx context.Context, barStore storage.BarStore, universeStore storage.UniverseStore) error {
	for _, sec := range FixtureSecurities() {
		s := sec
		if err := universeStore.Insert(ctx, &s); err != nil {
			return fmt.Errorf("insert fixture security %s: %w", sec.Symbol, err)
		}
	}
	if err := barStore.InsertBulk(ctx, FixtureBars()); err != nil {
		return fmt.Errorf("insert fixture bars: %w", err)
	}
	return nil
}

// fixtureDates returns n trading dates, weekdays only, from 2022-01-03.
func fixtureDates(n int) []time.Time {
	dates := make([]time.Time, 0, n)
	d := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}
