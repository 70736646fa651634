package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/storage"
)

// UniverseStore implements storage.UniverseStore using PostgreSQL.
type UniverseStore struct {
	pool *Pool
}

// NewUniverseStore creates a new UniverseStore.
func NewUniverseStore(pool *Pool) *UniverseStore {
	return &UniverseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UniverseStore = (*UniverseStore)(nil)

// Insert adds a security. Returns ErrDuplicateKey if the symbol exists.
func (s *UniverseStore) Insert(ctx context.Context, sec *domain.Security) error {
	if sec == nil || sec.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO universe (symbol, name, exchange, listed_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, sec.Symbol, sec.Name, sec.Exchange, sec.ListedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert security: %w", err)
	}
	return nil
}

// GetBySymbol retrieves one security. Returns ErrNotFound if absent.
func (s *UniverseStore) GetBySymbol(ctx context.Context, symbol string) (*domain.Security, error) {
	query := `
		SELECT symbol, name, exchange, listed_at
		FROM universe
		WHERE symbol = $1
	`

	row := s.pool.QueryRow(ctx, query, symbol)
	sec, err := scanSecurity(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get security by symbol: %w", err)
	}
	return sec, nil
}

// List retrieves the full universe ordered by symbol ASC.
func (s *UniverseStore) List(ctx context.Context) ([]*domain.Security, error) {
	query := `
		SELECT symbol, name, exchange, listed_at
		FROM universe
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list universe: %w", err)
	}
	defer rows.Close()

	var result []*domain.Security
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan security: %w", err)
		}
		result = append(result, sec)
	}
	return result, rows.Err()
}

func scanSecurity(row pgx.Row) (*domain.Security, error) {
	var sec domain.Security
	if err := row.Scan(&sec.Symbol, &sec.Name, &sec.Exchange, &sec.ListedAt); err != nil {
		return nil, err
	}
	return &sec, nil
}
