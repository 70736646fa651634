package factors

import (
	"fmt"
	"math"

	"equity-factor-lab/internal/domain"
)

// winsorLower and winsorUpper are the cross-sectional clipping quantiles
// applied by every factor that winsorizes its output.
const (
	winsorLower = 0.01
	winsorUpper = 0.99
)

// Momentum is the trailing price change over a lookback window, optionally
// skipping the most recent days to sidestep short-term reversal.
type Momentum struct {
	Lookback int
	Skip     int
}

func (f Momentum) Name() string { return fmt.Sprintf("MOM_%d", f.Lookback) }
func (f Momentum) Description() string {
	return fmt.Sprintf("momentum over %d days, skipping %d", f.Lookback, f.Skip)
}
func (f Momentum) RequiredFields() []string { return []string{domain.FieldClose} }

func (f Momentum) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	close, err := bundle.Field(domain.FieldClose)
	if err != nil {
		return nil, err
	}
	if f.Skip > 0 {
		close = shift(close, f.Skip)
	}
	return pctChange(close, f.Lookback), nil
}

// Reversal is negated short-horizon momentum: recent losers score high.
type Reversal struct {
	Lookback int
}

func (f Reversal) Name() string { return fmt.Sprintf("REV_%d", f.Lookback) }
func (f Reversal) Description() string {
	return fmt.Sprintf("short-term reversal over %d days", f.Lookback)
}
func (f Reversal) RequiredFields() []string { return []string{domain.FieldClose} }

func (f Reversal) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	close, err := bundle.Field(domain.FieldClose)
	if err != nil {
		return nil, err
	}
	mom := pctChange(close, f.Lookback)
	return elementwise(func(v ...float64) float64 { return -v[0] }, mom), nil
}

// Volatility is the rolling standard deviation of daily returns.
type Volatility struct {
	Lookback int
}

func (f Volatility) Name() string { return fmt.Sprintf("VOL_%d", f.Lookback) }
func (f Volatility) Description() string {
	return fmt.Sprintf("return volatility over %d days", f.Lookback)
}
func (f Volatility) RequiredFields() []string { return []string{domain.FieldClose} }

func (f Volatility) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	close, err := bundle.Field(domain.FieldClose)
	if err != nil {
		return nil, err
	}
	return rollingStd(pctChange(close, 1), f.Lookback), nil
}

// Size proxies market capitalization with log(price times volume).
type Size struct{}

func (Size) Name() string        { return "SIZE" }
func (Size) Description() string { return "log dollar-volume size proxy" }
func (Size) RequiredFields() []string {
	return []string{domain.FieldClose, domain.FieldVolume}
}

func (Size) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	panels, err := requireFields(bundle, domain.FieldClose, domain.FieldVolume)
	if err != nil {
		return nil, err
	}
	return elementwise(func(v ...float64) float64 {
		cap := v[0] * v[1]
		if cap <= 0 {
			return math.NaN()
		}
		return math.Log(cap)
	}, panels[0], panels[1]), nil
}

// Value is the earnings yield, the inverse of trailing P/E.
type Value struct{}

func (Value) Name() string            { return "VALUE" }
func (Value) Description() string     { return "earnings yield (inverse trailing P/E)" }
func (Value) RequiredFields() []string { return []string{domain.FieldPETTM} }

func (Value) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	pe, err := bundle.Field(domain.FieldPETTM)
	if err != nil {
		return nil, err
	}
	return inverse(pe), nil
}

// QualityTurn proxies quality with share turnover.
type QualityTurn struct{}

func (QualityTurn) Name() string            { return "QUALITY" }
func (QualityTurn) Description() string     { return "turnover-based quality proxy" }
func (QualityTurn) RequiredFields() []string { return []string{domain.FieldTurnover} }

func (QualityTurn) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	return bundle.Field(domain.FieldTurnover)
}

// Growth is long-horizon price growth, a proxy for earnings growth.
type Growth struct {
	Lookback int
}

func (f Growth) Name() string { return fmt.Sprintf("GROWTH_%d", f.Lookback) }
func (f Growth) Description() string {
	return fmt.Sprintf("price growth over %d days", f.Lookback)
}
func (f Growth) RequiredFields() []string { return []string{domain.FieldClose} }

func (f Growth) Calculate(bundle domain.PanelBundle) (*domain.Panel, error) {
	close, err := bundle.Field(domain.FieldClose)
	if err != nil {
		return nil, err
	}
	return Winsorize(pctChange(close, f.Lookback), winsorLower, winsorUpper), nil
}
