// Package pipeline orchestrates a full factor study: dataset assembly,
// per-factor evaluation, long/short backtests, risk diagnostics and report
// generation, with per-factor failure isolation throughout.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"equity-factor-lab/internal/analysis"
	"equity-factor-lab/internal/backtest"
	"equity-factor-lab/internal/config"
	"equity-factor-lab/internal/dataset"
	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/factors"
	"equity-factor-lab/internal/observability"
	"equity-factor-lab/internal/performance"
	"equity-factor-lab/internal/reporting"
	"equity-factor-lab/internal/risk"
	"equity-factor-lab/internal/storage"
)

// maxFillGap caps forward-filling during cleaning so suspensions longer than
// a week stay missing.
const maxFillGap = 5

// icStabilityWindow is the rolling window, in IC observations, for the
// persistence diagnostics.
const icStabilityWindow = 12

// Study runs one end-to-end factor study.
type Study struct {
	cfg       config.Config
	outputDir string

	summaries storage.FactorSummaryStore // optional, persists per-factor records
	metrics   *observability.Metrics     // optional
	reportGen *reporting.Generator
	log       zerolog.Logger
	clock     func() time.Time
}

// NewStudy creates a study from a validated configuration.
func NewStudy(cfg config.Config, outputDir string) *Study {
	return &Study{
		cfg:       cfg,
		outputDir: outputDir,
		reportGen: reporting.NewGenerator(),
		log:       zerolog.Nop(),
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithSummaryStore persists each factor summary after evaluation.
func (s *Study) WithSummaryStore(store storage.FactorSummaryStore) *Study {
	s.summaries = store
	return s
}

// WithMetrics records phase timings and counters.
func (s *Study) WithMetrics(m *observability.Metrics) *Study {
	s.metrics = m
	return s
}

// WithLogger sets the structured logger.
func (s *Study) WithLogger(log zerolog.Logger) *Study {
	s.log = log
	return s
}

// WithClock sets a custom clock function for deterministic output.
func (s *Study) WithClock(clock func() time.Time) *Study {
	s.clock = clock
	s.reportGen = s.reportGen.WithClock(clock)
	return s
}

// StudyResult carries everything one run produced.
type StudyResult struct {
	Results          []*domain.FactorTestResult
	Failures         map[string]error
	Backtests        map[string]*domain.BacktestResult
	BacktestFailures map[string]error
	Composite        *domain.BacktestResult

	// BenchmarkRelatives holds alpha/beta per backtested factor, present
	// only when the config names a benchmark found in the bar set.
	BenchmarkRelatives map[string]*domain.BenchmarkRelative

	// Risk diagnostics keyed by factor name. RiskMetrics covers backtested
	// factors, ICStability covers testable factors, and MarketBetas regresses
	// each top-minus-bottom spread on the benchmark when one is available.
	RiskMetrics map[string]*risk.AdjustedMetrics
	ICStability map[string]*risk.StabilityMetrics
	MarketBetas map[string]*domain.BenchmarkRelative

	CorrelationNames []string
	Correlations     [][]float64
	Report           *reporting.Report
}

// Run executes the study over the given bars and factor set. Individual
// factor failures are collected, never fatal; dataset assembly and report
// writing errors abort the run.
func (s *Study) Run(ctx context.Context, bars []domain.Bar, factorSet []factors.Factor) (*StudyResult, error) {
	for _, warning := range s.cfg.Warnings() {
		s.log.Warn().Msg(warning)
	}

	// Phase 1: dataset
	phaseStart := s.clock()
	bundle, err := dataset.BuildBundle(bars)
	if err != nil {
		s.observePhase("dataset", phaseStart, err)
		return nil, fmt.Errorf("build bundle: %w", err)
	}
	bundle = dataset.Clean(bundle, maxFillGap)
	forward := dataset.ForwardReturns(bundle[domain.FieldClose], s.cfg.Analysis.ReturnPeriod)
	s.observePhase("dataset", phaseStart, nil)
	s.log.Info().
		Int("dates", forward.NumDates()).
		Int("symbols", forward.NumSymbols()).
		Int("factors", len(factorSet)).
		Msg("dataset assembled")

	// Phase 2: factor evaluation
	phaseStart = s.clock()
	result := &StudyResult{
		Failures:         make(map[string]error),
		BacktestFailures: make(map[string]error),
	}
	tester := analysis.NewTester(s.cfg.Analysis.Quantiles, s.cfg.Analysis.MinCrossSection)
	alignedFactors := make(map[string]*domain.Panel)

	for _, f := range factorSet {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := f.Name()
		panel, err := f.Calculate(bundle)
		if err != nil {
			s.recordFactorFailure(result, name, "calculate", err)
			continue
		}

		aligned, alignedForward, err := dataset.FilterCoverage(
			panel, forward, s.cfg.Analysis.MinPeriods, s.cfg.Analysis.MinStocksPerQuantile)
		if err != nil {
			s.recordFactorFailure(result, name, "coverage", err)
			continue
		}

		res := tester.Run(name, aligned, alignedForward)
		result.Results = append(result.Results, res)
		if s.metrics != nil {
			s.metrics.FactorsTested.Inc()
		}
		if res.Summary == nil {
			if s.metrics != nil {
				s.metrics.FactorsUntestable.Inc()
			}
			s.log.Warn().Str("factor", name).Msg("factor untestable, no valid IC observations")
			continue
		}

		alignedFactors[name] = aligned
		s.log.Info().
			Str("factor", name).
			Float64("ic_mean", res.Summary.ICMean).
			Float64("tmb_sharpe", res.Summary.TMBSharpe).
			Int("symbols", res.ValidSymbols).
			Msg("factor evaluated")
	}
	s.observePhase("factors", phaseStart, nil)

	// Phase 3: persist summaries
	if s.summaries != nil {
		phaseStart = s.clock()
		err := s.persistSummaries(ctx, result.Results)
		s.observePhase("persist", phaseStart, err)
		if err != nil {
			return nil, fmt.Errorf("persist summaries: %w", err)
		}
	}

	// Phase 4: backtests
	phaseStart = s.clock()
	backtester := backtest.NewBacktester(
		s.cfg.Backtest.InitialCapital,
		s.cfg.Backtest.TransactionCost,
		performance.NewAnalyzer(s.cfg.Risk.RiskFreeRate),
	)
	result.Backtests, result.BacktestFailures = backtester.RunBatch(result.Results, s.cfg.Backtest.RebalancePeriod)
	if s.metrics != nil {
		s.metrics.BacktestsRun.Add(float64(len(result.Backtests)))
	}
	for name, err := range result.BacktestFailures {
		s.log.Warn().Str("factor", name).Err(err).Msg("backtest failed")
	}

	composite, err := backtester.Composite(result.Results, s.cfg.Backtest.CompositeTopN, s.cfg.Backtest.RebalancePeriod)
	switch {
	case err == nil:
		result.Composite = composite
		if s.metrics != nil {
			s.metrics.BacktestsRun.Inc()
		}
	case errors.Is(err, backtest.ErrNoConstituents):
		s.log.Warn().Msg("no qualifying composite constituents")
	default:
		s.log.Warn().Err(err).Msg("composite backtest failed")
	}
	s.observePhase("backtest", phaseStart, nil)

	// Phase 5: risk diagnostics
	phaseStart = s.clock()
	for _, res := range result.Results {
		if _, ok := alignedFactors[res.FactorName]; ok {
			result.CorrelationNames = append(result.CorrelationNames, res.FactorName)
		}
	}
	result.Correlations = risk.CorrelationMatrix(result.CorrelationNames, alignedFactors)

	riskAnalyzer := risk.NewAnalyzer(s.cfg.Risk.RiskFreeRate)
	result.RiskMetrics = make(map[string]*risk.AdjustedMetrics)
	result.ICStability = make(map[string]*risk.StabilityMetrics)
	for name, bt := range result.Backtests {
		if m := riskAnalyzer.RiskAdjusted(bt.Returns); m != nil {
			result.RiskMetrics[name] = m
		}
	}
	for _, res := range result.Results {
		if res.Summary == nil {
			continue
		}
		if st := riskAnalyzer.Stability(res.ICSeries, icStabilityWindow); st != nil {
			result.ICStability[res.FactorName] = st
		}
	}

	if benchmark := benchmarkReturns(bundle[domain.FieldClose], s.cfg.Risk.Benchmark, s.cfg.Analysis.ReturnPeriod); benchmark != nil {
		analyzer := performance.NewAnalyzer(s.cfg.Risk.RiskFreeRate)
		result.BenchmarkRelatives = make(map[string]*domain.BenchmarkRelative)
		result.MarketBetas = make(map[string]*domain.BenchmarkRelative)
		for name, bt := range result.Backtests {
			if rel := analyzer.AlphaBeta(bt.Returns, benchmark); rel != nil {
				result.BenchmarkRelatives[name] = rel
				s.log.Info().
					Str("factor", name).
					Float64("alpha", rel.Alpha).
					Float64("beta", rel.Beta).
					Msg("benchmark exposure")
			}
		}
		for _, res := range result.Results {
			if res.TopMinusBottom == nil {
				continue
			}
			if rel := riskAnalyzer.MarketExposure(res.TopMinusBottom, benchmark); rel != nil {
				result.MarketBetas[res.FactorName] = rel
			}
		}
	}
	s.observePhase("risk", phaseStart, nil)

	// Phase 6: report
	phaseStart = s.clock()
	result.Report = s.reportGen.Build(result.Results, result.Backtests, result.Composite)
	reporting.AttachRiskSection(result.Report, result.CorrelationNames, result.Correlations, riskRows(result))
	if s.outputDir != "" {
		if err := s.reportGen.WriteFiles(s.outputDir, result.Report); err != nil {
			s.observePhase("report", phaseStart, err)
			return nil, err
		}
	}
	s.observePhase("report", phaseStart, nil)
	if s.metrics != nil {
		s.metrics.ReportsGenerated.Inc()
		s.metrics.LastSuccessfulStudy.Set(float64(s.clock().Unix()))
	}

	s.log.Info().
		Int("tested", len(result.Results)).
		Int("failed", len(result.Failures)).
		Int("backtests", len(result.Backtests)).
		Msg("study complete")

	return result, nil
}

func (s *Study) recordFactorFailure(result *StudyResult, name, phase string, err error) {
	result.Failures[name] = err
	if s.metrics != nil {
		s.metrics.FactorsFailed.WithLabelValues(phase).Inc()
	}
	s.log.Warn().Str("factor", name).Str("phase", phase).Err(err).Msg("factor failed")
}

func (s *Study) persistSummaries(ctx context.Context, results []*domain.FactorTestResult) error {
	createdAt := s.clock()
	for _, res := range results {
		if res.Summary == nil {
			continue
		}
		rec := &domain.FactorSummaryRecord{
			FactorName:   res.FactorName,
			CreatedAt:    createdAt,
			ValidSymbols: res.ValidSymbols,
			Summary:      *res.Summary,
		}
		if err := s.summaries.Insert(ctx, rec); err != nil {
			return fmt.Errorf("factor %s: %w", res.FactorName, err)
		}
	}
	return nil
}

// riskRows flattens the risk diagnostics into report rows.
func riskRows(result *StudyResult) []reporting.RiskRow {
	rows := make([]reporting.RiskRow, 0, len(result.RiskMetrics))
	for name, m := range result.RiskMetrics {
		row := reporting.RiskRow{
			FactorName:         name,
			SortinoRatio:       m.SortinoRatio,
			DownsideVolatility: m.DownsideVolatility,
			VaR95:              m.VaR95,
			CVaR95:             m.CVaR95,
			MaxDrawdown:        m.MaxDrawdown,
			MarketBeta:         math.NaN(),
		}
		if st := result.ICStability[name]; st != nil {
			row.ICStability = st.Stability
			row.ICDecayRate = st.DecayRate
		}
		if rel := result.MarketBetas[name]; rel != nil {
			row.MarketBeta = rel.Beta
		}
		rows = append(rows, row)
	}
	return rows
}

// benchmarkReturns derives the benchmark's return series at the study's
// forward horizon from the cleaned close panel, dated at the observation
// start like the forward-return panel. Returns nil when the symbol is unset
// or not in the panel.
func benchmarkReturns(closes *domain.Panel, symbol string, horizon int) *domain.Series {
	if closes == nil || symbol == "" || horizon <= 0 {
		return nil
	}
	col, ok := closes.SymbolIndex(symbol)
	if !ok {
		return nil
	}

	allDates := closes.Dates()
	dates := make([]time.Time, 0, len(allDates))
	values := make([]float64, 0, len(allDates))
	for i := 0; i+horizon < len(allDates); i++ {
		now, future := closes.At(i, col), closes.At(i+horizon, col)
		if now == 0 || math.IsNaN(now) || math.IsNaN(future) {
			continue
		}
		dates = append(dates, allDates[i])
		values = append(values, future/now-1)
	}
	if len(dates) == 0 {
		return nil
	}
	return domain.NewSeries(dates, values)
}

func (s *Study) observePhase(phase string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordPhase(phase, status, s.clock().Sub(start).Seconds())
}
