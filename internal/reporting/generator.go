package reporting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/performance"
)

// Significance thresholds for the two-sided normal test on the TMB t-stat.
const (
	sigThreshold1Pct  = 2.58
	sigThreshold5Pct  = 1.96
	sigThreshold10Pct = 1.65
)

// Generator turns study results into a Report.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Build assembles a report from factor test results, their backtests and an
// optional composite. Results with a nil summary are listed as untestable.
func (g *Generator) Build(
	results []*domain.FactorTestResult,
	backtests map[string]*domain.BacktestResult,
	composite *domain.BacktestResult,
) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		FactorCount: len(results),
	}

	for _, res := range results {
		if res.Summary == nil {
			r.UntestableFactors = append(r.UntestableFactors, res.FactorName)
			continue
		}
		r.FactorRows = append(r.FactorRows, summaryRow(res.FactorName, res.Summary))
	}
	sort.Strings(r.UntestableFactors)
	sortFactorRows(r.FactorRows)

	for _, bt := range backtests {
		r.BacktestRows = append(r.BacktestRows, backtestRow(bt))
	}
	sortBacktestRows(r.BacktestRows)

	if composite != nil {
		row := backtestRow(composite)
		r.Composite = &row
	}

	r.KeyFindings = keyFindings(r.FactorRows)
	return r
}

// FromRecords assembles a factor-table-only report from persisted summaries,
// for re-rendering without re-running the study.
func (g *Generator) FromRecords(records []*domain.FactorSummaryRecord) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		FactorCount: len(records),
	}
	for _, rec := range records {
		r.FactorRows = append(r.FactorRows, summaryRow(rec.FactorName, &rec.Summary))
	}
	sortFactorRows(r.FactorRows)
	r.KeyFindings = keyFindings(r.FactorRows)
	return r
}

// AttachRiskSection adds the correlation matrix and risk metric rows to a
// report. Rows are sorted by factor name.
func AttachRiskSection(r *Report, names []string, matrix [][]float64, rows []RiskRow) {
	r.CorrelationNames = names
	r.Correlations = matrix
	r.RiskRows = rows
	sort.SliceStable(r.RiskRows, func(i, j int) bool {
		return r.RiskRows[i].FactorName < r.RiskRows[j].FactorName
	})
}

// WriteFiles renders the report to markdown and CSV files in dir.
func (g *Generator) WriteFiles(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(dir, "factor_report.md")
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	csvPath := filepath.Join(dir, "factor_summary.csv")
	if err := os.WriteFile(csvPath, []byte(RenderCSV(r.FactorRows)), 0o644); err != nil {
		return fmt.Errorf("write csv summary: %w", err)
	}

	if len(r.CorrelationNames) > 0 {
		corrPath := filepath.Join(dir, "factor_correlations.csv")
		if err := os.WriteFile(corrPath, []byte(RenderCorrelationCSV(r.CorrelationNames, r.Correlations)), 0o644); err != nil {
			return fmt.Errorf("write correlation matrix: %w", err)
		}
	}

	if len(r.RiskRows) > 0 {
		riskPath := filepath.Join(dir, "risk_metrics.csv")
		if err := os.WriteFile(riskPath, []byte(RenderRiskCSV(r.RiskRows)), 0o644); err != nil {
			return fmt.Errorf("write risk metrics: %w", err)
		}
	}

	return nil
}

func summaryRow(name string, s *domain.FactorSummary) FactorSummaryRow {
	return FactorSummaryRow{
		FactorName:      name,
		ICMean:          s.ICMean,
		ICIR:            s.ICIR,
		ICTStat:         s.ICTStat,
		ICPositiveRatio: s.ICPositiveRatio,
		ICObservations:  s.ICObservations,
		TMBAnnualReturn: s.TMBMeanReturn * performance.TradingDaysPerYear,
		TMBSharpe:       s.TMBSharpe,
		TMBTStat:        s.TMBTStat,
		AvgTurnover:     s.AvgTurnover,
		Significance:    significance(s.TMBTStat),
	}
}

func backtestRow(bt *domain.BacktestResult) BacktestRow {
	row := BacktestRow{
		FactorName:   bt.FactorName,
		Constituents: bt.Constituents,
	}
	if m := bt.Metrics; m != nil {
		row.TotalReturn = m.TotalReturn
		row.AnnualReturn = m.AnnualReturn
		row.AnnualVolatility = m.AnnualVolatility
		row.SharpeRatio = m.SharpeRatio
		row.MaxDrawdown = m.MaxDrawdown
		row.CalmarRatio = m.CalmarRatio
		row.WinRate = m.WinRate
		row.Observations = m.Observations
	}
	return row
}

// significance maps |t| to the conventional star notation.
func significance(tstat float64) string {
	t := math.Abs(tstat)
	switch {
	case t > sigThreshold1Pct:
		return "***"
	case t > sigThreshold5Pct:
		return "**"
	case t > sigThreshold10Pct:
		return "*"
	default:
		return ""
	}
}

func sortFactorRows(rows []FactorSummaryRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TMBSharpe != rows[j].TMBSharpe {
			return rows[i].TMBSharpe > rows[j].TMBSharpe
		}
		return rows[i].FactorName < rows[j].FactorName
	})
}

func sortBacktestRows(rows []BacktestRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SharpeRatio != rows[j].SharpeRatio {
			return rows[i].SharpeRatio > rows[j].SharpeRatio
		}
		return rows[i].FactorName < rows[j].FactorName
	})
}

// keyFindings derives interpretation lines from the sorted factor table.
func keyFindings(rows []FactorSummaryRow) []string {
	if len(rows) == 0 {
		return nil
	}

	var findings []string

	best := rows[0]
	worst := rows[len(rows)-1]
	findings = append(findings, fmt.Sprintf(
		"Best performing factor: %s (TMB Sharpe %.4f)", best.FactorName, best.TMBSharpe))
	findings = append(findings, fmt.Sprintf(
		"Worst performing factor: %s (TMB Sharpe %.4f)", worst.FactorName, worst.TMBSharpe))

	significant := 0
	for _, row := range rows {
		if math.Abs(row.TMBTStat) > sigThreshold5Pct {
			significant++
		}
	}
	if significant > 0 {
		findings = append(findings, fmt.Sprintf(
			"Statistically significant factors: %d out of %d", significant, len(rows)))
	} else {
		findings = append(findings, "No statistically significant factors found")
	}

	// Recommend the best factor with a positive significant spread.
	for _, row := range rows {
		if row.TMBAnnualReturn > 0 && math.Abs(row.TMBTStat) > sigThreshold10Pct {
			findings = append(findings, fmt.Sprintf(
				"Consider incorporating %s (TMB Sharpe %.4f)", row.FactorName, row.TMBSharpe))
			break
		}
	}

	return findings
}
