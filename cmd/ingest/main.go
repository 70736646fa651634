package main

import (
	"context"
	"errors"
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
	"equity-factor-lab/internal/marketdata"
	"equity-factor-lab/internal/observability"
	"equity-factor-lab/internal/storage"
	chstore "equity-factor-lab/internal/storage/clickhouse"
	"equity-factor-lab/internal/storage/migrations"
	pgstore "equity-factor-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	sourceURL := flag.String("source-url", "", "Daily-bar API endpoint (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	exchange := flag.String("exchange", "", "Restrict universe fetch to one exchange")
	metricsAddr := flag.String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (disabled when empty)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *postgresDSN == "" || *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required")
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
	if *sourceURL != "" {
		cfg.Data.SourceURL = *sourceURL
	}
	if cfg.Data.SourceURL == "" {
		log.Fatal().Msg("no data source: set --source-url or data.source_url")
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

	start, err := time.Parse("2006-01-02", cfg.Data.StartDate)
	if err != nil {
		log.Fatal().Err(err).Msg("parse start_date")
	}
	end, err := time.Parse("2006-01-02", cfg.Data.EndDate)
	if err != nil {
		log.Fatal().Err(err).Msg("parse end_date")
	}

	pgPool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pgPool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
		log.Fatal().Err(err).Msg("postgres migrations")
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("clickhouse migrations")
	}
	defer chConn.Close()

	universeStore := pgstore.NewUniverseStore(pgPool)
	barStore := chstore.NewBarStore(chConn)

	client := marketdata.NewClient(cfg.Data.SourceURL)
	if err := client.Login(ctx); err != nil {
		log.Fatal().Err(err).Msg("login")
	}
	defer func() {
		if err := client.Logout(context.Background()); err != nil {
			log.Warn().Err(err).Msg("logout")
		}
	}()

	symbols, err := resolveUniverse(ctx, cfg, client, universeStore, *exchange, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve universe")
	}
	log.Info().Int("symbols", len(symbols)).Msg("universe resolved")

	ingested, failed := 0, 0
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			log.Fatal().Err(err).Msg("interrupted")
		}

		bars, err := client.DailyBars(ctx, symbol, start, end)
		if err != nil {
			log.Warn().Str("symbol", symbol).Err(err).Msg("fetch failed")
			metrics.IngestionErrors.WithLabelValues("fetch").Inc()
			failed++
			continue
		}
		if len(bars) == 0 {
			log.Warn().Str("symbol", symbol).Msg("no bars in range")
			continue
		}

		queryStart := time.Now()
		err = barStore.InsertBulk(ctx, bars)
		if errors.Is(err, storage.ErrDuplicateKey) {
			metrics.RecordDBQuery("clickhouse", "insert_bars", time.Since(queryStart).Seconds(), nil)
			log.Info().Str("symbol", symbol).Msg("already ingested, skipping")
			continue
		}
		metrics.RecordDBQuery("clickhouse", "insert_bars", time.Since(queryStart).Seconds(), err)
		if err != nil {
			log.Warn().Str("symbol", symbol).Err(err).Msg("store failed")
			metrics.IngestionErrors.WithLabelValues("store").Inc()
			failed++
			continue
		}

		ingested += len(bars)
		metrics.BarsIngested.Add(float64(len(bars)))
		metrics.SymbolsIngested.Inc()
		log.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("ingested")
	}

	if failed == 0 {
		metrics.LastSuccessfulIngestion.Set(float64(time.Now().Unix()))
	}
	fmt.Printf("Ingestion complete: %d bars across %d symbols, %d failures\n",
		ingested, len(symbols)-failed, failed)
}

// resolveUniverse returns the symbols to ingest. An explicit config universe
// wins; otherwise the source's listing is fetched and persisted.
func resolveUniverse(
	ctx context.Context,
	cfg config.Config,
	client *marketdata.Client,
	universeStore storage.UniverseStore,
	exchange string,
	metrics *observability.Metrics,
) ([]string, error) {
	if len(cfg.Data.Universe) > 0 {
		return cfg.Data.Universe, nil
	}

	secs, err := client.Universe(ctx, exchange)
	if err != nil {
		metrics.IngestionErrors.WithLabelValues("universe").Inc()
		return nil, err
	}

	symbols := make([]string, 0, len(secs))
	for _, sec := range secs {
		s := sec
		queryStart := time.Now()
		err := universeStore.Insert(ctx, &s)
		if errors.Is(err, storage.ErrDuplicateKey) {
			err = nil
		}
		metrics.RecordDBQuery("postgres", "insert_security", time.Since(queryStart).Seconds(), err)
		if err != nil {
			return nil, fmt.Errorf("persist security %s: %w", sec.Symbol, err)
		}
		symbols = append(symbols, sec.Symbol)
	}
	return symbols, nil
}
