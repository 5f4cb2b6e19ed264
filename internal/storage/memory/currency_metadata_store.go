package memory

import (
	"context"
	"sort"
	"sync"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// CurrencyMetadataStore is an in-memory implementation of storage.CurrencyMetadataStore.
type CurrencyMetadataStore struct {
	mu     sync.RWMutex
	byCode map[string]*domain.CurrencyMetadata
}

// NewCurrencyMetadataStore creates a new in-memory currency metadata store.
func NewCurrencyMetadataStore() *CurrencyMetadataStore {
	return &CurrencyMetadataStore{
		byCode: make(map[string]*domain.CurrencyMetadata),
	}
}

// UpsertBulk inserts or updates metadata keyed by code.
func (s *CurrencyMetadataStore) UpsertBulk(_ context.Context, items []*domain.CurrencyMetadata) error {
	for _, m := range items {
		if m == nil || m.Code == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range items {
		metaCopy := *m
		s.byCode[m.Code] = &metaCopy
	}
	return nil
}

// GetAll retrieves all metadata, ordered by code.
func (s *CurrencyMetadataStore) GetAll(_ context.Context) ([]*domain.CurrencyMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CurrencyMetadata, 0, len(s.byCode))
	for _, m := range s.byCode {
		metaCopy := *m
		result = append(result, &metaCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// GetByCode retrieves metadata by code. Returns ErrNotFound if not exists.
func (s *CurrencyMetadataStore) GetByCode(_ context.Context, code string) (*domain.CurrencyMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byCode[code]
	if !exists {
		return nil, storage.ErrNotFound
	}

	metaCopy := *m
	return &metaCopy, nil
}

var _ storage.CurrencyMetadataStore = (*CurrencyMetadataStore)(nil)
