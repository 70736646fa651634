package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"equity-factor-lab/internal/analysis"
	"equity-factor-lab/internal/backtest"
	"equity-factor-lab/internal/config"
	"equity-factor-lab/internal/dataset"
	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/factors"
	"equity-factor-lab/internal/performance"
	"equity-factor-lab/internal/pipeline"
	"equity-factor-lab/internal/storage"
	chstore "equity-factor-lab/internal/storage/clickhouse"
	pgstore "equity-factor-lab/internal/storage/postgres"
)

const maxFillGap = 5

// rollingPeriods is the trailing window, in rebalance periods, for the
// rolling performance line.
const rollingPeriods = 6

func main() {
	factorType := flag.String("factor", "momentum", "Factor type to backtest (see factor factory names)")
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Run on in-memory fixture data instead of databases")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required when not using --use-memory")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load config")
		}
	}

	factor, err := factors.Create(*factorType)
	if err != nil {
		log.Fatal().Err(err).Msg("create factor")
	}

	bars, closeStores, err := loadBars(ctx, cfg, *useMemory, *postgresDSN, *clickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("load bars")
	}
	defer closeStores()

	analyzer := performance.NewAnalyzer(cfg.Risk.RiskFreeRate)
	result, bt, err := run(cfg, bars, factor, analyzer)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	printResult(result, bt, analyzer)
}

// run evaluates one factor and backtests its quantile spread.
func run(cfg config.Config, bars []domain.Bar, factor factors.Factor, analyzer *performance.Analyzer) (*domain.FactorTestResult, *domain.BacktestResult, error) {
	bundle, err := dataset.BuildBundle(bars)
	if err != nil {
		return nil, nil, err
	}
	bundle = dataset.Clean(bundle, maxFillGap)
	forward := dataset.ForwardReturns(bundle[domain.FieldClose], cfg.Analysis.ReturnPeriod)

	panel, err := factor.Calculate(bundle)
	if err != nil {
		return nil, nil, fmt.Errorf("calculate %s: %w", factor.Name(), err)
	}
	aligned, alignedForward, err := dataset.FilterCoverage(
		panel, forward, cfg.Analysis.MinPeriods, cfg.Analysis.MinStocksPerQuantile)
	if err != nil {
		return nil, nil, fmt.Errorf("coverage %s: %w", factor.Name(), err)
	}

	tester := analysis.NewTester(cfg.Analysis.Quantiles, cfg.Analysis.MinCrossSection)
	result := tester.Run(factor.Name(), aligned, alignedForward)
	if result.Summary == nil {
		return result, nil, fmt.Errorf("factor %s is untestable: no valid IC observations", factor.Name())
	}

	backtester := backtest.NewBacktester(
		cfg.Backtest.InitialCapital,
		cfg.Backtest.TransactionCost,
		analyzer,
	)
	bt, err := backtester.RunSingle(result.QuantileReturns, result.FactorName, cfg.Backtest.RebalancePeriod)
	if err != nil {
		return result, nil, err
	}
	return result, bt, nil
}

func loadBars(ctx context.Context, cfg config.Config, useMemory bool, postgresDSN, clickhouseDSN string) ([]domain.Bar, func(), error) {
	if useMemory {
		return pipeline.FixtureBars(), func() {}, nil
	}

	start, err := time.Parse("2006-01-02", cfg.Data.StartDate)
	if err != nil {
		return nil, nil, fmt.Errorf("parse start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.Data.EndDate)
	if err != nil {
		return nil, nil, fmt.Errorf("parse end_date: %w", err)
	}

	pgPool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	closeStores := func() {
		pgPool.Close()
		chConn.Close()
	}

	symbols := cfg.Data.Universe
	if len(symbols) == 0 {
		secs, err := pgstore.NewUniverseStore(pgPool).List(ctx)
		if err != nil {
			closeStores()
			return nil, nil, fmt.Errorf("list universe: %w", err)
		}
		for _, sec := range secs {
			symbols = append(symbols, sec.Symbol)
		}
	}

	var barStore storage.BarStore = chstore.NewBarStore(chConn)
	bars, err := barStore.GetByDateRange(ctx, symbols, start, end)
	if err != nil {
		closeStores()
		return nil, nil, err
	}
	return bars, closeStores, nil
}

func printResult(result *domain.FactorTestResult, bt *domain.BacktestResult, analyzer *performance.Analyzer) {
	s := result.Summary
	fmt.Printf("Factor: %s (%d symbols)\n\n", result.FactorName, result.ValidSymbols)

	fmt.Println("IC analysis")
	fmt.Printf("  mean %.4f  std %.4f  IR %.4f  t-stat %.4f  win %.2f  obs %d\n",
		s.ICMean, s.ICStd, s.ICIR, s.ICTStat, s.ICPositiveRatio, s.ICObservations)

	fmt.Println("Top minus bottom")
	fmt.Printf("  mean %.6f  std %.6f  sharpe %.4f  t-stat %.4f  obs %d\n",
		s.TMBMeanReturn, s.TMBStd, s.TMBSharpe, s.TMBTStat, s.TMBObservations)
	fmt.Printf("  avg turnover %.4f\n\n", s.AvgTurnover)

	m := bt.Metrics
	fmt.Println("Backtest")
	fmt.Printf("  total %.4f  annual %.4f  vol %.4f  sharpe %.4f\n",
		m.TotalReturn, m.AnnualReturn, m.AnnualVolatility, m.SharpeRatio)
	fmt.Printf("  max drawdown %.4f  calmar %.4f  win rate %.4f  obs %d\n",
		m.MaxDrawdown, m.CalmarRatio, m.WinRate, m.Observations)

	if n := bt.PortfolioValue.Len(); n > 0 {
		fmt.Printf("  final portfolio value %.2f\n", bt.PortfolioValue.Value(n-1))
	}

	ret, vol, sharpe := analyzer.Rolling(bt.Returns, rollingPeriods)
	if n := ret.Len(); n > 0 && !math.IsNaN(ret.Value(n-1)) {
		fmt.Printf("  trailing %d periods  return %.4f  vol %.4f  sharpe %.4f\n",
			rollingPeriods, ret.Value(n-1), vol.Value(n-1), sharpe.Value(n-1))
	}
}
