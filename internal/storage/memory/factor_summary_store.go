package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/storage"
)

// FactorSummaryStore is an in-memory implementation of storage.FactorSummaryStore.
type FactorSummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FactorSummaryRecord // keyed by (factor_name, created_at)
}

// NewFactorSummaryStore creates a new in-memory factor summary store.
func NewFactorSummaryStore() *FactorSummaryStore {
	return &FactorSummaryStore{data: make(map[string]*domain.FactorSummaryRecord)}
}

func summaryKey(r *domain.FactorSummaryRecord) string {
	return fmt.Sprintf("%s|%d", r.FactorName, r.CreatedAt.UnixNano())
}

// Insert adds a summary record. Returns ErrDuplicateKey if
// (factor_name, created_at) exists.
func (s *FactorSummaryStore) Insert(_ context.Context, r *domain.FactorSummaryRecord) error {
	if r == nil || r.FactorName == "" || r.CreatedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := summaryKey(r)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	recCopy := *r
	s.data[key] = &recCopy
	return nil
}

// GetByFactor retrieves all records for a factor, newest first.
func (s *FactorSummaryStore) GetByFactor(_ context.Context, factorName string) ([]*domain.FactorSummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FactorSummaryRecord
	for _, r := range s.data {
		if r.FactorName == factorName {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// GetLatest retrieves the newest record per factor, ordered by factor name ASC.
func (s *FactorSummaryStore) GetLatest(_ context.Context) ([]*domain.FactorSummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*domain.FactorSummaryRecord)
	for _, r := range s.data {
		cur, ok := latest[r.FactorName]
		if !ok || r.CreatedAt.After(cur.CreatedAt) {
			latest[r.FactorName] = r
		}
	}

	result := make([]*domain.FactorSummaryRecord, 0, len(latest))
	for _, r := range latest {
		recCopy := *r
		result = append(result, &recCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FactorName < result[j].FactorName
	})
	return result, nil
}

var _ storage.FactorSummaryStore = (*FactorSummaryStore)(nil)
