package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Factor Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Factors evaluated: %d\n\n", r.FactorCount))

	// Factor Performance
	sb.WriteString("## Factor Performance\n\n")
	if len(r.FactorRows) > 0 {
		sb.WriteString("| Factor | Mean IC | IC IR | IC t-stat | IC Win% | Obs | TMB Ann | TMB Sharpe | TMB t-stat | Turnover | Sig |\n")
		sb.WriteString("|--------|---------|-------|-----------|---------|-----|---------|------------|------------|----------|-----|\n")
		for _, row := range r.FactorRows {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.4f | %.2f | %d | %.4f | %.4f | %.4f | %.4f | %s |\n",
				row.FactorName, row.ICMean, row.ICIR, row.ICTStat,
				row.ICPositiveRatio, row.ICObservations,
				row.TMBAnnualReturn, row.TMBSharpe, row.TMBTStat,
				row.AvgTurnover, row.Significance))
		}
	} else {
		sb.WriteString("No factor results available.\n")
	}
	sb.WriteString("\n")

	// Untestable factors
	if len(r.UntestableFactors) > 0 {
		sb.WriteString("## Untestable Factors\n\n")
		sb.WriteString("Factors with no valid IC observations (insufficient cross-section):\n\n")
		for _, name := range r.UntestableFactors {
			sb.WriteString(fmt.Sprintf("- %s\n", name))
		}
		sb.WriteString("\n")
	}

	// Backtests
	sb.WriteString("## Long/Short Backtests\n\n")
	if len(r.BacktestRows) > 0 {
		sb.WriteString("| Factor | Total | Annual | Vol | Sharpe | MaxDD | Calmar | Win% | Obs |\n")
		sb.WriteString("|--------|-------|--------|-----|--------|-------|--------|------|-----|\n")
		for _, row := range r.BacktestRows {
			sb.WriteString(backtestLine(row))
		}
	} else {
		sb.WriteString("No backtest results available.\n")
	}
	sb.WriteString("\n")

	// Composite
	if r.Composite != nil {
		sb.WriteString("## Composite Portfolio\n\n")
		if len(r.Composite.Constituents) > 0 {
			sb.WriteString(fmt.Sprintf("Constituents: %s\n\n", strings.Join(r.Composite.Constituents, ", ")))
		}
		sb.WriteString("| Factor | Total | Annual | Vol | Sharpe | MaxDD | Calmar | Win% | Obs |\n")
		sb.WriteString("|--------|-------|--------|-----|--------|-------|--------|------|-----|\n")
		sb.WriteString(backtestLine(*r.Composite))
		sb.WriteString("\n")
	}

	// Key Findings
	sb.WriteString("## Key Findings\n\n")
	if len(r.KeyFindings) > 0 {
		for _, finding := range r.KeyFindings {
			sb.WriteString(fmt.Sprintf("- %s\n", finding))
		}
	} else {
		sb.WriteString("No findings available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func backtestLine(row BacktestRow) string {
	return fmt.Sprintf("| %s | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %d |\n",
		row.FactorName, row.TotalReturn, row.AnnualReturn, row.AnnualVolatility,
		row.SharpeRatio, row.MaxDrawdown, row.CalmarRatio, row.WinRate,
		row.Observations)
}
