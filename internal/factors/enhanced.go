package factors

import (
	"fmt"
	"math"

	"equity-factor-lab/internal/domain"
)

// CompositeValue averages the available valuation yields (E/P, B/P, S/P).
// Any one field is enough; all three missing is an error on the first.
type CompositeValue struct{}

func (CompositeValue) Name() string        { return "VALUE_COMPOSITE" }
func (CompositeValue) Description() string { return "mean of available valuation yields" }
func (CompositeValue) RequiredFields() []string {
	return []string{domain.FieldPETTM, domain.FieldPBMRQ, domain.FieldPSTTM}
}

func (f CompositeValue) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	var yields []*domain.Panel
	for _, field := range f.RequiredFields() {
		if p, err := bundle.Field(field); err == nil {
			yields = append(yields, inverse(p))
		}
	}
	if len(yields) == 0 {
		return nil, &domain.MissingFieldError{Field: domain.FieldPETTM}
	}
	return Winsorize(meanOf(yields...), winsorLower, winsorUpper), nil
}

// QualityROE estimates return on equity from valuation ratios: P/B over P/E.
type QualityROE struct{}

func (QualityROE) Name() string        { return "QUALITY_ROE" }
func (QualityROE) Description() string { return "ROE estimated as P/B over P/E" }
func (QualityROE) RequiredFields() []string {
	return []string{domain.FieldPETTM, domain.FieldPBMRQ}
}

func (QualityROE) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	panels, err := requireFields(bundle, domain.FieldPETTM, domain.FieldPBMRQ)
	if err != nil {
		return nil, err
	}
	roe := elementwise(func(v ...float64) float64 {
		if v[0] == 0 {
			return math.NaN()
		}
		return v[1] / v[0]
	}, panels[0], panels[1])
	return Winsorize(roe, winsorLower, winsorUpper), nil
}

// CompositeQuality blends profitability (ROE estimate), stability (negated
// 63-day volatility), and liquidity (turnover), using whichever inputs the
// bundle provides.
type CompositeQuality struct{}

func (CompositeQuality) Name() string        { return "QUALITY_COMPOSITE" }
func (CompositeQuality) Description() string { return "blend of profitability, stability, liquidity" }
func (CompositeQuality) RequiredFields() []string {
	return []string{domain.FieldPETTM, domain.FieldPBMRQ, domain.FieldClose, domain.FieldTurnover}
}

func (f CompositeQuality) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	var scores []*domain.Panel

	if pe, err := bundle.Field(domain.FieldPETTM); err == nil {
		if pb, err := bundle.Field(domain.FieldPBMRQ); err == nil {
			scores = append(scores, elementwise(func(v ...float64) float64 {
				if v[0] == 0 {
					return math.NaN()
				}
				return v[1] / v[0]
			}, pe, pb))
		}
	}
	if closePanel, err := bundle.Field(domain.FieldClose); err == nil {
		vol := rollingStd(pctChange(closePanel, 1), 63)
		scores = append(scores, elementwise(func(v ...float64) float64 { return -v[0] }, vol))
	}
	if turn, err := bundle.Field(domain.FieldTurnover); err == nil {
		scores = append(scores, turn)
	}

	if len(scores) == 0 {
		return nil, &domain.MissingFieldError{Field: domain.FieldClose}
	}
	return Winsorize(meanOf(scores...), winsorLower, winsorUpper), nil
}

// RSI is the relative strength index over a lookback window, a bounded
// overbought/oversold oscillator.
type RSI struct {
	Lookback int
}

func (f RSI) Name() string            { return fmt.Sprintf("RSI_%d", f.Lookback) }
func (f RSI) Description() string     { return fmt.Sprintf("relative strength index, %d days", f.Lookback) }
func (f RSI) RequiredFields() []string { return []string{domain.FieldClose} }

func (f RSI) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	closePanel, err := bundle.Field(domain.FieldClose)
	if err != nil {
		return nil, err
	}
	delta := diff(closePanel)

	gain := elementwise(func(v ...float64) float64 {
		if v[0] > 0 {
			return v[0]
		}
		return 0
	}, delta)
	loss := elementwise(func(v ...float64) float64 {
		if v[0] < 0 {
			return -v[0]
		}
		return 0
	}, delta)

	avgGain := rollingMean(gain, f.Lookback)
	avgLoss := rollingMean(loss, f.Lookback)

	rsi := elementwise(func(v ...float64) float64 {
		if v[1] == 0 {
			return 100
		}
		rs := v[0] / v[1]
		return 100 - 100/(1+rs)
	}, avgGain, avgLoss)

	return Winsorize(rsi, winsorLower, winsorUpper), nil
}

// MACD is the moving-average convergence/divergence histogram: fast EMA
// minus slow EMA, less its own signal EMA.
type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

func (MACD) Name() string            { return "MACD" }
func (MACD) Description() string     { return "MACD histogram" }
func (MACD) RequiredFields() []string { return []string{domain.FieldClose} }

func (f MACD) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	closePanel, err := bundle.Field(domain.FieldClose)
	if err != nil {
		return nil, err
	}
	macd := elementwise(func(v ...float64) float64 { return v[0] - v[1] },
		ewm(closePanel, f.Fast), ewm(closePanel, f.Slow))
	histogram := elementwise(func(v ...float64) float64 { return v[0] - v[1] },
		macd, ewm(macd, f.Signal))
	return Winsorize(histogram, winsorLower, winsorUpper), nil
}

// Bollinger is the position of the close inside its Bollinger band, 0 at the
// lower band and 1 at the upper.
type Bollinger struct {
	Lookback int
	StdDevs  float64
}

func (f Bollinger) Name() string { return fmt.Sprintf("BOLL_%d", f.Lookback) }
func (f Bollinger) Description() string {
	return fmt.Sprintf("Bollinger band position, %d days", f.Lookback)
}
func (f Bollinger) RequiredFields() []string { return []string{domain.FieldClose} }

func (f Bollinger) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	closePanel, err := bundle.Field(domain.FieldClose)
	if err != nil {
		return nil, err
	}
	sma := rollingMean(closePanel, f.Lookback)
	std := rollingStd(closePanel, f.Lookback)

	position := elementwise(func(v ...float64) float64 {
		c, mean, s := v[0], v[1], v[2]
		width := 2 * f.StdDevs * s
		if width == 0 {
			return math.NaN()
		}
		lower := mean - f.StdDevs*s
		return (c - lower) / width
	}, closePanel, sma, std)

	return Winsorize(position, winsorLower, winsorUpper), nil
}

// ATR is the average true range normalized by price, a volatility measure
// that accounts for overnight gaps.
type ATR struct {
	Lookback int
}

func (f ATR) Name() string            { return fmt.Sprintf("ATR_%d", f.Lookback) }
func (f ATR) Description() string     { return fmt.Sprintf("normalized average true range, %d days", f.Lookback) }
func (f ATR) RequiredFields() []string {
	return []string{domain.FieldHigh, domain.FieldLow, domain.FieldClose}
}

func (f ATR) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	panels, err := requireFields(bundle, domain.FieldHigh, domain.FieldLow, domain.FieldClose)
	if err != nil {
		return nil, err
	}
	high, low, closePanel := panels[0], panels[1], panels[2]
	prevClose := shift(closePanel, 1)

	trueRange := elementwise(func(v ...float64) float64 {
		h, l, pc := v[0], v[1], v[2]
		tr := h - l
		if x := math.Abs(h - pc); x > tr {
			tr = x
		}
		if x := math.Abs(l - pc); x > tr {
			tr = x
		}
		return tr
	}, high, low, prevClose)

	atr := rollingMean(trueRange, f.Lookback)
	normalized := elementwise(func(v ...float64) float64 {
		if v[1] == 0 {
			return math.NaN()
		}
		return v[0] / v[1]
	}, atr, closePanel)

	return Winsorize(normalized, winsorLower, winsorUpper), nil
}
