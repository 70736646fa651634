package reporting

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"equity-factor-lab/internal/domain"
)

func testResults() []*domain.FactorTestResult {
	return []*domain.FactorTestResult{
		{
			FactorName: "MOM_21",
			Summary: &domain.FactorSummary{
				ICMean:          0.032,
				ICIR:            0.28,
				ICTStat:         2.4,
				ICPositiveRatio: 0.57,
				ICObservations:  120,
				TMBMeanReturn:   0.0008,
				TMBSharpe:       1.35,
				TMBTStat:        2.7,
				AvgTurnover:     0.31,
			},
		},
		{
			FactorName: "VOL_63",
			Summary: &domain.FactorSummary{
				ICMean:          -0.011,
				ICIR:            -0.09,
				ICTStat:         -0.8,
				ICPositiveRatio: 0.48,
				ICObservations:  120,
				TMBMeanReturn:   -0.0002,
				TMBSharpe:       -0.40,
				TMBTStat:        -0.9,
				AvgTurnover:     0.22,
			},
		},
		{FactorName: "REV_1", Summary: nil},
	}
}

func testBacktests() map[string]*domain.BacktestResult {
	return map[string]*domain.BacktestResult{
		"MOM_21": {
			FactorName: "MOM_21",
			Metrics: &domain.PerformanceMetrics{
				TotalReturn:      0.42,
				AnnualReturn:     0.19,
				AnnualVolatility: 0.14,
				SharpeRatio:      1.21,
				MaxDrawdown:      -0.11,
				CalmarRatio:      1.73,
				WinRate:          0.55,
				Observations:     504,
			},
		},
		"VOL_63": {
			FactorName: "VOL_63",
			Metrics: &domain.PerformanceMetrics{
				TotalReturn:  -0.08,
				SharpeRatio:  -0.35,
				Observations: 504,
			},
		},
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	}
}

func TestGenerator_Build(t *testing.T) {
	gen := NewGenerator().WithClock(fixedClock())

	composite := &domain.BacktestResult{
		FactorName:   "Composite_Top2",
		Constituents: []string{"MOM_21", "VOL_63"},
		Metrics:      &domain.PerformanceMetrics{SharpeRatio: 0.9, Observations: 504},
	}

	report := gen.Build(testResults(), testBacktests(), composite)

	if report.FactorCount != 3 {
		t.Errorf("expected 3 factors, got %d", report.FactorCount)
	}

	if len(report.UntestableFactors) != 1 || report.UntestableFactors[0] != "REV_1" {
		t.Errorf("expected REV_1 untestable, got %v", report.UntestableFactors)
	}

	if len(report.FactorRows) != 2 {
		t.Fatalf("expected 2 factor rows, got %d", len(report.FactorRows))
	}
	if report.FactorRows[0].FactorName != "MOM_21" {
		t.Errorf("expected MOM_21 first by Sharpe, got %s", report.FactorRows[0].FactorName)
	}

	// Annualized spread = mean daily * 252
	wantAnn := 0.0008 * 252
	if diff := report.FactorRows[0].TMBAnnualReturn - wantAnn; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected TMB annual %v, got %v", wantAnn, report.FactorRows[0].TMBAnnualReturn)
	}

	// |2.7| > 2.58 gets three stars, |-0.9| gets none
	if report.FactorRows[0].Significance != "***" {
		t.Errorf("expected ***, got %q", report.FactorRows[0].Significance)
	}
	if report.FactorRows[1].Significance != "" {
		t.Errorf("expected no stars, got %q", report.FactorRows[1].Significance)
	}

	if len(report.BacktestRows) != 2 || report.BacktestRows[0].FactorName != "MOM_21" {
		t.Errorf("expected MOM_21 first backtest row, got %+v", report.BacktestRows)
	}

	if report.Composite == nil || report.Composite.FactorName != "Composite_Top2" {
		t.Fatalf("expected composite row, got %+v", report.Composite)
	}
	if len(report.Composite.Constituents) != 2 {
		t.Errorf("expected 2 constituents, got %v", report.Composite.Constituents)
	}

	if len(report.KeyFindings) == 0 {
		t.Fatal("expected key findings")
	}
	if !strings.Contains(report.KeyFindings[0], "MOM_21") {
		t.Errorf("expected best factor finding for MOM_21, got %q", report.KeyFindings[0])
	}
}

func TestGenerator_FromRecords(t *testing.T) {
	gen := NewGenerator().WithClock(fixedClock())

	records := []*domain.FactorSummaryRecord{
		{FactorName: "MOM_21", Summary: domain.FactorSummary{TMBSharpe: 1.1, TMBTStat: 2.0}},
		{FactorName: "REV_5", Summary: domain.FactorSummary{TMBSharpe: 1.8, TMBTStat: 2.2}},
	}

	report := gen.FromRecords(records)

	if len(report.FactorRows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.FactorRows))
	}
	if report.FactorRows[0].FactorName != "REV_5" {
		t.Errorf("expected REV_5 first by Sharpe, got %s", report.FactorRows[0].FactorName)
	}
}

func TestRenderMarkdown(t *testing.T) {
	gen := NewGenerator().WithClock(fixedClock())
	report := gen.Build(testResults(), testBacktests(), nil)

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Factor Analysis Report",
		"## Factor Performance",
		"| MOM_21 |",
		"## Untestable Factors",
		"- REV_1",
		"## Long/Short Backtests",
		"## Key Findings",
		"Best performing factor: MOM_21",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	if strings.Contains(md, "## Composite Portfolio") {
		t.Error("composite section should be absent without a composite result")
	}
}

func TestRenderCSV(t *testing.T) {
	gen := NewGenerator().WithClock(fixedClock())
	report := gen.Build(testResults(), nil, nil)

	csv := RenderCSV(report.FactorRows)

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "factor_name,ic_mean") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "MOM_21,") {
		t.Errorf("expected MOM_21 first, got %s", lines[1])
	}
	if !strings.HasSuffix(lines[1], ",***") {
		t.Errorf("expected significance column, got %s", lines[1])
	}
}

func testRiskRows() []RiskRow {
	return []RiskRow{
		{
			FactorName:         "VOL_63",
			SortinoRatio:       -0.51,
			DownsideVolatility: 0.09,
			VaR95:              -0.021,
			CVaR95:             -0.034,
			MaxDrawdown:        -0.18,
			ICStability:        0.42,
			ICDecayRate:        0.11,
			MarketBeta:         math.NaN(),
		},
		{
			FactorName:         "MOM_21",
			SortinoRatio:       1.62,
			DownsideVolatility: 0.07,
			VaR95:              -0.015,
			CVaR95:             -0.027,
			MaxDrawdown:        -0.11,
			ICStability:        0.65,
			ICDecayRate:        0.23,
			MarketBeta:         0.35,
		},
	}
}

func TestAttachRiskSection(t *testing.T) {
	gen := NewGenerator().WithClock(fixedClock())
	report := gen.Build(testResults(), testBacktests(), nil)

	names := []string{"MOM_21", "VOL_63"}
	matrix := [][]float64{{1, -0.2}, {-0.2, 1}}
	AttachRiskSection(report, names, matrix, testRiskRows())

	if len(report.CorrelationNames) != 2 || len(report.Correlations) != 2 {
		t.Fatalf("expected 2x2 correlation section, got %v / %v", report.CorrelationNames, report.Correlations)
	}
	if len(report.RiskRows) != 2 {
		t.Fatalf("expected 2 risk rows, got %d", len(report.RiskRows))
	}
	if report.RiskRows[0].FactorName != "MOM_21" {
		t.Errorf("expected rows sorted by name, got %s first", report.RiskRows[0].FactorName)
	}
}

func TestRenderCorrelationCSV(t *testing.T) {
	names := []string{"MOM_21", "VOL_63"}
	matrix := [][]float64{{1, math.NaN()}, {math.NaN(), 1}}

	csv := RenderCorrelationCSV(names, matrix)

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "factor_name,MOM_21,VOL_63" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	// Thin overlap renders as an empty cell
	if lines[1] != "MOM_21,1.000000," {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestRenderRiskCSV(t *testing.T) {
	csv := RenderRiskCSV(testRiskRows())

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "factor_name,sortino_ratio") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	// VOL_63 has no benchmark beta, its last cell is empty
	if !strings.HasSuffix(lines[1], ",") {
		t.Errorf("expected empty market_beta cell, got %s", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",0.350000") {
		t.Errorf("expected market beta column, got %s", lines[2])
	}
}

func TestGenerator_WriteFiles(t *testing.T) {
	gen := NewGenerator().WithClock(fixedClock())
	report := gen.Build(testResults(), testBacktests(), nil)
	AttachRiskSection(report,
		[]string{"MOM_21", "VOL_63"},
		[][]float64{{1, -0.2}, {-0.2, 1}},
		testRiskRows())

	dir := t.TempDir()
	out := filepath.Join(dir, "output")
	if err := gen.WriteFiles(out, report); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}

	md, err := os.ReadFile(filepath.Join(out, "factor_report.md"))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(md), "Factor Analysis Report") {
		t.Error("markdown file missing header")
	}

	csv, err := os.ReadFile(filepath.Join(out, "factor_summary.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.Contains(string(csv), "MOM_21") {
		t.Error("csv file missing factor row")
	}

	corr, err := os.ReadFile(filepath.Join(out, "factor_correlations.csv"))
	if err != nil {
		t.Fatalf("read correlation csv: %v", err)
	}
	if !strings.Contains(string(corr), "factor_name,MOM_21,VOL_63") {
		t.Error("correlation csv missing header")
	}

	riskCSV, err := os.ReadFile(filepath.Join(out, "risk_metrics.csv"))
	if err != nil {
		t.Fatalf("read risk csv: %v", err)
	}
	if !strings.Contains(string(riskCSV), "sortino_ratio") {
		t.Error("risk csv missing header")
	}
}

func TestGenerator_WriteFilesWithoutRiskSection(t *testing.T) {
	gen := NewGenerator().WithClock(fixedClock())
	report := gen.Build(testResults(), nil, nil)

	out := filepath.Join(t.TempDir(), "output")
	if err := gen.WriteFiles(out, report); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}

	for _, name := range []string{"factor_correlations.csv", "risk_metrics.csv"} {
		if _, err := os.Stat(filepath.Join(out, name)); !os.IsNotExist(err) {
			t.Errorf("%s should not exist without a risk section", name)
		}
	}
}
