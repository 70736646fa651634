package reporting

import (
	"fmt"
	"math"
	"strings"
)

// RenderCSV renders factor summary rows as CSV string.
func RenderCSV(rows []FactorSummaryRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("factor_name,ic_mean,ic_ir,ic_tstat,ic_positive_ratio,ic_observations,")
	sb.WriteString("tmb_annual_return,tmb_sharpe,tmb_tstat,avg_turnover,significance\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f,%.6f,%d,%.6f,%.6f,%.6f,%.6f,%s\n",
			row.FactorName,
			row.ICMean,
			row.ICIR,
			row.ICTStat,
			row.ICPositiveRatio,
			row.ICObservations,
			row.TMBAnnualReturn,
			row.TMBSharpe,
			row.TMBTStat,
			row.AvgTurnover,
			row.Significance,
		))
	}

	return sb.String()
}

// RenderCorrelationCSV renders the factor correlation matrix as CSV. Pairs
// with too little overlap render as empty cells.
func RenderCorrelationCSV(names []string, matrix [][]float64) string {
	var sb strings.Builder

	sb.WriteString("factor_name")
	for _, name := range names {
		sb.WriteString(",")
		sb.WriteString(name)
	}
	sb.WriteString("\n")

	for i, name := range names {
		sb.WriteString(name)
		for j := range names {
			sb.WriteString(",")
			sb.WriteString(csvCell(matrix[i][j]))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderRiskCSV renders risk metric rows as CSV string.
func RenderRiskCSV(rows []RiskRow) string {
	var sb strings.Builder

	sb.WriteString("factor_name,sortino_ratio,downside_volatility,var_95,cvar_95,max_drawdown,")
	sb.WriteString("ic_stability,ic_decay_rate,market_beta\n")

	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%s\n",
			row.FactorName,
			row.SortinoRatio,
			row.DownsideVolatility,
			row.VaR95,
			row.CVaR95,
			row.MaxDrawdown,
			row.ICStability,
			row.ICDecayRate,
			csvCell(row.MarketBeta),
		))
	}

	return sb.String()
}

// csvCell formats one value, rendering NaN as an empty cell.
func csvCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.6f", v)
}
