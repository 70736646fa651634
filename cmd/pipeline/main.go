package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"equity-factor-lab/internal/config"
	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/factors"
	"equity-factor-lab/internal/observability"
	"equity-factor-lab/internal/pipeline"
	"equity-factor-lab/internal/storage"
	chstore "equity-factor-lab/internal/storage/clickhouse"
	"equity-factor-lab/internal/storage/memory"
	"equity-factor-lab/internal/storage/migrations"
	pgstore "equity-factor-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	outputDir := flag.String("output-dir", "output", "Output directory for report files")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Run on in-memory fixture data instead of databases")
	factorGroup := flag.String("factors", "", "Factor group to evaluate (momentum, reversal, volatility, value, quality, technical); default set when empty")
	metricsAddr := flag.String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (disabled when empty)")
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

	metrics := observability.NewMetrics("")
	if *metricsAddr != "" {
		go func() {
			log.Info().Str("addr", *metricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(*metricsAddr, observability.Handler()); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	barStore, universeStore, summaryStore, closeStores, err := openStores(ctx, *useMemory, *postgresDSN, *clickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer closeStores()

	bars, err := loadBars(ctx, cfg, barStore, universeStore)
	if err != nil {
		log.Fatal().Err(err).Msg("load bars")
	}
	log.Info().Int("bars", len(bars)).Msg("bars loaded")

	factorSet, err := selectFactors(*factorGroup)
	if err != nil {
		log.Fatal().Err(err).Msg("select factors")
	}

	study := pipeline.NewStudy(cfg, *outputDir).
		WithSummaryStore(summaryStore).
		WithMetrics(metrics).
		WithLogger(log.Logger)

	result, err := study.Run(ctx, bars, factorSet)
	if err != nil {
		log.Fatal().Err(err).Msg("study failed")
	}

	fmt.Printf("Study complete: %d factors evaluated, %d failed, %d backtests\n",
		len(result.Results), len(result.Failures), len(result.Backtests))
	fmt.Printf("Report written to %s/factor_report.md\n", *outputDir)
}

// openStores wires either the in-memory fixture stores or the database
// backends. The returned closer is a no-op in memory mode.
func openStores(ctx context.Context, useMemory bool, postgresDSN, clickhouseDSN string) (
	storage.BarStore, storage.UniverseStore, storage.FactorSummaryStore, func(), error,
) {
	if useMemory {
		barStore := memory.NewBarStore()
		universeStore := memory.NewUniverseStore()
		summaryStore := memory.NewFactorSummaryStore()
		if err := pipeline.LoadFixtures(ctx, barStore, universeStore); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		return barStore, universeStore, summaryStore, func() {}, nil
	}

	pgPool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	closeStores := func() {
		pgPool.Close()
		if err := chConn.Close(); err != nil {
			log.Warn().Err(err).Msg("close clickhouse")
		}
	}
	return chstore.NewBarStore(chConn), pgstore.NewUniverseStore(pgPool), pgstore.NewFactorSummaryStore(pgPool), closeStores, nil
}

// loadBars reads the configured date range for the configured universe,
// falling back to every stored symbol when the config lists none.
func loadBars(ctx context.Context, cfg config.Config, barStore storage.BarStore, universeStore storage.UniverseStore) ([]domain.Bar, error) {
	start, err := time.Parse("2006-01-02", cfg.Data.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.Data.EndDate)
	if err != nil {
		return nil, fmt.Errorf("parse end_date: %w", err)
	}

	symbols := cfg.Data.Universe
	if len(symbols) == 0 {
		secs, err := universeStore.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list universe: %w", err)
		}
		for _, sec := range secs {
			symbols = append(symbols, sec.Symbol)
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to study")
	}

	return barStore.GetByDateRange(ctx, symbols, start, end)
}

func selectFactors(group string) ([]factors.Factor, error) {
	if group == "" {
		return factors.DefaultSet(), nil
	}
	return factors.Group(group)
}
