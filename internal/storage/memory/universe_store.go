package memory

import (
	"context"
	"sort"
	"sync"

	"equity-factor-lab/internal/domain"
	"equity-factor-lab/internal/storage"
)

// UniverseStore is an in-memory implementation of storage.UniverseStore.
type UniverseStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Security // keyed by symbol
}

// NewUniverseStore creates a new in-memory universe store.
func NewUniverseStore() *UniverseStore {
	return &UniverseStore{data: make(map[string]*domain.Security)}
}

// Insert adds a security. Returns ErrDuplicateKey if the symbol exists.
func (s *UniverseStore) Insert(_ context.Context, sec *domain.Security) error {
	if sec == nil || sec.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sec.Symbol]; exists {
		return storage.ErrDuplicateKey
	}
	secCopy := *sec
	s.data[sec.Symbol] = &secCopy
	return nil
}

// GetBySymbol retrieves one security. Returns ErrNotFound if absent.
func (s *UniverseStore) GetBySymbol(_ context.Context, symbol string) (*domain.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.data[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}
	secCopy := *sec
	return &secCopy, nil
}

// List retrieves the full universe ordered by symbol ASC.
func (s *UniverseStore) List(_ context.Context) ([]*domain.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Security, 0, len(s.data))
	for _, sec := range s.data {
		secCopy := *sec
		result = append(result, &secCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

var _ storage.UniverseStore = (*UniverseStore)(nil)
