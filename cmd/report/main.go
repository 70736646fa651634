package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"equity-factor-lab/internal/reporting"
	"equity-factor-lab/internal/storage/migrations"
	pgstore "equity-factor-lab/internal/storage/postgres"
)

// Re-renders the factor report from the latest persisted summaries without
// re-running the study. Backtest sections require a full pipeline run.
func main() {
	outputDir := flag.String("output-dir", "output", "Output directory for report files")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required")
		os.Exit(1)
	}

	pgPool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pgPool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
		log.Fatal().Err(err).Msg("postgres migrations")
	}

	records, err := pgstore.NewFactorSummaryStore(pgPool).GetLatest(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load summaries")
	}
	if len(records) == 0 {
		log.Fatal().Msg("no stored factor summaries; run cmd/pipeline first")
	}

	gen := reporting.NewGenerator()
	report := gen.FromRecords(records)
	if err := gen.WriteFiles(*outputDir, report); err != nil {
		log.Fatal().Err(err).Msg("write report")
	}

	fmt.Printf("Report rebuilt from %d stored summaries:\n", len(records))
	fmt.Printf("  - %s/factor_report.md\n", *outputDir)
	fmt.Printf("  - %s/factor_summary.csv\n", *outputDir)
}
