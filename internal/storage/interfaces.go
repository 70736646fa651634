package storage

import (
	"context"
	"time"

	"equity-factor-lab/internal/domain"
)

// BarStore provides access to daily_bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails the entire batch on duplicate
	// (symbol, date).
	InsertBulk(ctx context.Context, bars []domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by date ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]domain.Bar, error)

	// GetByDateRange retrieves bars for the given symbols within
	// [start, end] (inclusive), ordered by date ASC then symbol ASC.
	GetByDateRange(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error)
}

// UniverseStore provides access to universe storage.
type UniverseStore interface {
	// Insert adds a security. Returns ErrDuplicateKey if the symbol exists.
	Insert(ctx context.Context, s *domain.Security) error

	// GetBySymbol retrieves one security. Returns ErrNotFound if absent.
	GetBySymbol(ctx context.Context, symbol string) (*domain.Security, error)

	// List retrieves the full universe ordered by symbol ASC.
	List(ctx context.Context) ([]*domain.Security, error)
}

// FactorSummaryStore provides access to factor_summaries storage.
type FactorSummaryStore interface {
	// Insert adds a summary record. Returns ErrDuplicateKey if
	// (factor_name, created_at) exists.
	Insert(ctx context.Context, r *domain.FactorSummaryRecord) error

	// GetByFactor retrieves all records for a factor, newest first.
	GetByFactor(ctx context.Context, factorName string) ([]*domain.FactorSummaryRecord, error)

	// GetLatest retrieves the newest record per factor, ordered by
	// factor name ASC.
	GetLatest(ctx context.Context) ([]*domain.FactorSummaryRecord, error)
}
