package factors

import (
	"fmt"
)

// Create builds a factor by its registry name with default parameters.
func Create(factorType string) (Factor, error) {
	switch factorType {
	case "momentum":
		return Momentum{Lookback: 21}, nil
	case "reversal":
		return Reversal{Lookback: 5}, nil
	case "volatility":
		return Volatility{Lookback: 21}, nil
	case "size":
		return Size{}, nil
	case "value_pe":
		return Value{}, nil
	case "value_composite":
		return CompositeValue{}, nil
	case "quality_turn":
		return QualityTurn{}, nil
	case "quality_roe":
		return QualityROE{}, nil
	case "quality_composite":
		return CompositeQuality{}, nil
	case "growth":
		return Growth{Lookback: 252}, nil
	case "rsi":
		return RSI{Lookback: 14}, nil
	case "macd":
		return MACD{Fast: 12, Slow: 26, Signal: 9}, nil
	case "bollinger_bands":
		return Bollinger{Lookback: 20, StdDevs: 2}, nil
	case "atr":
		return ATR{Lookback: 14}, nil
	default:
		return nil, fmt.Errorf("factors: unknown factor type %q", factorType)
	}
}

// Group builds a named family of related factors with the parameter sweeps
// used by the standard study.
func Group(name string) ([]Factor, error) {
	switch name {
	case "momentum":
		var out []Factor
		for _, lookback := range []int{21, 63, 252} {
			out = append(out, Momentum{Lookback: lookback, Skip: 1})
		}
		return out, nil
	case "reversal":
		var out []Factor
		for _, lookback := range []int{1, 5, 21} {
			out = append(out, Reversal{Lookback: lookback})
		}
		return out, nil
	case "volatility":
		var out []Factor
		for _, lookback := range []int{21, 63, 252} {
			out = append(out, Volatility{Lookback: lookback})
		}
		return out, nil
	case "value":
		return []Factor{Value{}, CompositeValue{}}, nil
	case "quality":
		return []Factor{QualityTurn{}, QualityROE{}, CompositeQuality{}}, nil
	case "technical":
		return []Factor{
			RSI{Lookback: 14},
			MACD{Fast: 12, Slow: 26, Signal: 9},
			Bollinger{Lookback: 20, StdDevs: 2},
			ATR{Lookback: 14},
		}, nil
	default:
		return nil, fmt.Errorf("factors: unknown factor group %q", name)
	}
}

// DefaultSet is the full factor lineup evaluated by the standard study.
func DefaultSet() []Factor {
	groups := []string{"momentum", "reversal", "volatility", "value", "quality", "technical"}
	var out []Factor
	for _, g := range groups {
		fs, _ := Group(g)
		out = append(out, fs...)
	}
	out = append(out, Size{}, Growth{Lookback: 252})
	return out
}
