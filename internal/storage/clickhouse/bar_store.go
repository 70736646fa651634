package clickhouse

import (
	"context"
	"fmt"
	"time"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, date).
func (s *BarStore) InsertBulk(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		symbol string
		date   time.Time
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		if b.Symbol == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.Date}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, b.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_bars (
			symbol, date, open, high, low, close, volume, turnover, pe_ttm, pb_mrq, ps_ttm
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.Date,
			b.Open, b.High, b.Low, b.Close, b.Volume,
			b.Turnover, b.PETTM, b.PBMRQ, b.PSTTM,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by date ASC.
func (s *BarStore) GetBySymbol(ctx context.Context, symbol string) ([]domain.Bar, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume, turnover, pe_ttm, pb_mrq, ps_ttm
		FROM daily_bars
		WHERE symbol = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get bars by symbol: %w", err)
	}
	defer rows.Close()

	var result []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(
			&b.Symbol, &b.Date,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
			&b.Turnover, &b.PETTM, &b.PBMRQ, &b.PSTTM,
		); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// GetByDateRange retrieves bars for the given symbols within [start, end]
// (inclusive), ordered by date ASC then symbol ASC.
func (s *BarStore) GetByDateRange(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume, turnover, pe_ttm, pb_mrq, ps_ttm
		FROM daily_bars
		WHERE symbol IN (?) AND date >= ? AND date <= ?
		ORDER BY date ASC, symbol ASC
	`

	rows, err := s.conn.Query(ctx, query, symbols, start, end)
	if err != nil {
		return nil, fmt.Errorf("get bars by date range: %w", err)
	}
	defer rows.Close()

	var result []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(
			&b.Symbol, &b.Date,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
			&b.Turnover, &b.PETTM, &b.PBMRQ, &b.PSTTM,
		); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// exists checks whether a bar with the given key is already stored.
func (s *BarStore) exists(ctx context.Context, symbol string, date time.Time) (bool, error) {
	query := `
		SELECT count() FROM daily_bars
		WHERE symbol = ? AND date = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol, date).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
