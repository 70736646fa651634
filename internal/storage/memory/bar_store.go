package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]domain.Bar // keyed by (symbol, date)
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{data: make(map[string]domain.Bar)}
}

func barKey(symbol string, date time.Time) string {
	return fmt.Sprintf("%s|%s", symbol, date.UTC().Format("2006-01-02"))
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, date).
func (s *BarStore) InsertBulk(_ context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		if b.Symbol == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, b.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		s.data[barKey(b.Symbol, b.Date)] = b
	}
	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by date ASC.
func (s *BarStore) GetBySymbol(_ context.Context, symbol string) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Bar
	for _, b := range s.data {
		if b.Symbol == symbol {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// GetByDateRange retrieves bars for the given symbols within [start, end]
// (inclusive), ordered by date ASC then symbol ASC.
func (s *BarStore) GetByDateRange(_ context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	wanted := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		wanted[sym] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Bar
	for _, b := range s.data {
		if _, ok := wanted[b.Symbol]; !ok {
			continue
		}
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

var _ storage.BarStore = (*BarStore)(nil)
