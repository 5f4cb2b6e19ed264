package memory

import (
	"context"
	"sort"
	"sync"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// FeatureRowStore is an in-memory implementation of storage.FeatureRowStore.
type FeatureRowStore struct {
	mu   sync.RWMutex
	rows []*domain.FeatureRow // ordered by (currency, timestamp)
}

// NewFeatureRowStore creates a new in-memory feature row store.
func NewFeatureRowStore() *FeatureRowStore {
	return &FeatureRowStore{}
}

// ReplaceAll swaps the stored table for rows.
func (s *FeatureRowStore) ReplaceAll(_ context.Context, rows []*domain.FeatureRow) error {
	next := make([]*domain.FeatureRow, 0, len(rows))
	seen := make(map[domain.ObservationKey]struct{}, len(rows))

	for _, r := range rows {
		if r == nil || r.Currency == "" {
			return storage.ErrInvalidInput
		}
		key := r.Key()
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}

		c := r.Clone()
		c.Timestamp = c.Timestamp.UTC()
		next = append(next, c)
	}

	sort.Slice(next, func(i, j int) bool {
		if next[i].Currency != next[j].Currency {
			return next[i].Currency < next[j].Currency
		}
		return next[i].Timestamp.Before(next[j].Timestamp)
	})

	s.mu.Lock()
	s.rows = next
	s.mu.Unlock()
	return nil
}

// GetAll retrieves every row, ordered by (currency, timestamp) ASC.
func (s *FeatureRowStore) GetAll(_ context.Context) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FeatureRow, len(s.rows))
	for i, r := range s.rows {
		result[i] = r.Clone()
	}
	return result, nil
}

// GetByCurrency retrieves rows for a currency, ordered by timestamp ASC.
func (s *FeatureRowStore) GetByCurrency(_ context.Context, currency string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureRow
	for _, r := range s.rows {
		if r.Currency == currency {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

// GetLatest retrieves the rows of the given currencies at the latest
// timestamp among them, ordered by currency.
func (s *FeatureRowStore) GetLatest(_ context.Context, currencies []string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		want[c] = struct{}{}
	}
	match := func(r *domain.FeatureRow) bool {
		if len(want) == 0 {
			return true
		}
		_, ok := want[r.Currency]
		return ok
	}

	var latest *domain.FeatureRow
	for _, r := range s.rows {
		if match(r) && (latest == nil || r.Timestamp.After(latest.Timestamp)) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}

	var result []*domain.FeatureRow
	for _, r := range s.rows {
		if match(r) && r.Timestamp.Equal(latest.Timestamp) {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)
