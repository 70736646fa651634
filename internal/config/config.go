// Package config loads the study configuration from YAML and applies
// defaults. Core analyzers receive configuration by value; there is no
// package-level state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for one factor study.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Backtest BacktestConfig `yaml:"backtest"`
	Risk     RiskConfig     `yaml:"risk"`
}

// DataConfig describes the universe and date range to study.
type DataConfig struct {
	StartDate string   `yaml:"start_date"` // YYYY-MM-DD
	EndDate   string   `yaml:"end_date"`   // YYYY-MM-DD
	Universe  []string `yaml:"universe"`
	SourceURL string   `yaml:"source_url"` // daily-bar API endpoint
}

// AnalysisConfig holds the factor-evaluation parameters.
type AnalysisConfig struct {
	Quantiles            int `yaml:"quantiles"`               // K bucket count
	ReturnPeriod         int `yaml:"return_period"`           // forward-return horizon in trading days
	MinPeriods           int `yaml:"min_periods"`             // min non-missing dates per symbol
	MinStocksPerQuantile int `yaml:"min_stocks_per_quantile"` // min surviving symbols per factor
	MinCrossSection      int `yaml:"min_cross_section"`       // per-date IC/regression requires > this many stocks
}

// BacktestConfig holds the simulation parameters.
type BacktestConfig struct {
	InitialCapital  float64 `yaml:"initial_capital"`
	TransactionCost float64 `yaml:"transaction_cost"` // flat rate per leg per rebalance
	RebalancePeriod int     `yaml:"rebalance_period"` // trading days between rebalances
	CompositeTopN   int     `yaml:"composite_top_n"`
}

// RiskConfig holds benchmark and rate assumptions.
type RiskConfig struct {
	RiskFreeRate float64 `yaml:"risk_free_rate"` // annual
	Benchmark    string  `yaml:"benchmark"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Data: DataConfig{
			StartDate: "2018-01-01",
			EndDate:   "2023-12-31",
		},
		Analysis: AnalysisConfig{
			Quantiles:            5,
			ReturnPeriod:         21,
			MinPeriods:           12,
			MinStocksPerQuantile: 3,
			MinCrossSection:      5,
		},
		Backtest: BacktestConfig{
			InitialCapital:  1_000_000,
			TransactionCost: 0.001,
			RebalancePeriod: 21,
			CompositeTopN:   3,
		},
		Risk: RiskConfig{
			RiskFreeRate: 0.03,
		},
	}
}

// Load reads a YAML config file, layering it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks hard constraints. Soft inconsistencies are reported by
// Warnings instead.
func (c Config) Validate() error {
	if c.Analysis.Quantiles < 2 {
		return fmt.Errorf("analysis.quantiles must be >= 2, got %d", c.Analysis.Quantiles)
	}
	if c.Analysis.ReturnPeriod < 1 {
		return fmt.Errorf("analysis.return_period must be >= 1, got %d", c.Analysis.ReturnPeriod)
	}
	if c.Backtest.RebalancePeriod < 1 {
		return fmt.Errorf("backtest.rebalance_period must be >= 1, got %d", c.Backtest.RebalancePeriod)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive, got %g", c.Backtest.InitialCapital)
	}
	if c.Backtest.TransactionCost < 0 {
		return fmt.Errorf("backtest.transaction_cost must be non-negative, got %g", c.Backtest.TransactionCost)
	}
	if c.Risk.RiskFreeRate < 0 {
		return fmt.Errorf("risk.risk_free_rate must be non-negative, got %g", c.Risk.RiskFreeRate)
	}
	return nil
}

// Warnings returns advisory messages for configurations that are legal but
// likely unintended. A rebalance stride shorter than the forward-return
// horizon double-counts overlapping return windows across periods; the
// simulation runs anyway, matching the documented modeling simplification.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Backtest.RebalancePeriod < c.Analysis.ReturnPeriod {
		warnings = append(warnings, fmt.Sprintf(
			"rebalance_period (%d) is shorter than return_period (%d): overlapping forward-return windows will be double-counted across periods",
			c.Backtest.RebalancePeriod, c.Analysis.ReturnPeriod))
	}
	return warnings
}
