package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/storage"
)

// FactorSummaryStore implements storage.FactorSummaryStore using PostgreSQL.
type FactorSummaryStore struct {
	pool *Pool
}

// NewFactorSummaryStore creates a new FactorSummaryStore.
func NewFactorSummaryStore(pool *Pool) *FactorSummaryStore {
	return &FactorSummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FactorSummaryStore = (*FactorSummaryStore)(nil)

const summaryColumns = `
	factor_name, created_at, valid_symbols,
	ic_mean, ic_std, ic_ir, ic_tstat, ic_positive_ratio, ic_observations,
	tmb_mean_return, tmb_std, tmb_sharpe, tmb_tstat, tmb_observations,
	factor_return_mean, factor_return_std, factor_return_sharpe, factor_return_observations,
	avg_turnover
`

// Insert adds a summary record. Returns ErrDuplicateKey if
// (factor_name, created_at) exists.
func (s *FactorSummaryStore) Insert(ctx context.Context, r *domain.FactorSummaryRecord) error {
	if r == nil || r.FactorName == "" || r.CreatedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO factor_summaries (` + summaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	sum := r.Summary
	_, err := s.pool.Exec(ctx, query,
		r.FactorName, r.CreatedAt, r.ValidSymbols,
		sum.ICMean, sum.ICStd, sum.ICIR, sum.ICTStat, sum.ICPositiveRatio, sum.ICObservations,
		sum.TMBMeanReturn, sum.TMBStd, sum.TMBSharpe, sum.TMBTStat, sum.TMBObservations,
		sum.FactorReturnMean, sum.FactorReturnStd, sum.FactorReturnSharpe, sum.FactorReturnObservations,
		sum.AvgTurnover,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert factor summary: %w", err)
	}
	return nil
}

// GetByFactor retrieves all records for a factor, newest first.
func (s *FactorSummaryStore) GetByFactor(ctx context.Context, factorName string) ([]*domain.FactorSummaryRecord, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM factor_summaries
		WHERE factor_name = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, factorName)
	if err != nil {
		return nil, fmt.Errorf("get summaries by factor: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// GetLatest retrieves the newest record per factor, ordered by factor name ASC.
func (s *FactorSummaryStore) GetLatest(ctx context.Context) ([]*domain.FactorSummaryRecord, error) {
	query := `
		SELECT DISTINCT ON (factor_name) ` + summaryColumns + `
		FROM factor_summaries
		ORDER BY factor_name ASC, created_at DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get latest summaries: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

func scanSummary(row pgx.Row) (*domain.FactorSummaryRecord, error) {
	var r domain.FactorSummaryRecord
	sum := &r.Summary
	err := row.Scan(
		&r.FactorName, &r.CreatedAt, &r.ValidSymbols,
		&sum.ICMean, &sum.ICStd, &sum.ICIR, &sum.ICTStat, &sum.ICPositiveRatio, &sum.ICObservations,
		&sum.TMBMeanReturn, &sum.TMBStd, &sum.TMBSharpe, &sum.TMBTStat, &sum.TMBObservations,
		&sum.FactorReturnMean, &sum.FactorReturnStd, &sum.FactorReturnSharpe, &sum.FactorReturnObservations,
		&sum.AvgTurnover,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanSummaries(rows pgx.Rows) ([]*domain.FactorSummaryRecord, error) {
	var result []*domain.FactorSummaryRecord
	for rows.Next() {
		r, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan factor summary: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
