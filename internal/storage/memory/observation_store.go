package memory

import (
	"context"
	"sort"
	"sync"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[domain.ObservationKey]*domain.Observation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[domain.ObservationKey]*domain.Observation),
	}
}

// InsertBulk adds multiple observations atomically. Fails entire batch on any duplicate.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[domain.ObservationKey]struct{}, len(obs))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, o := range obs {
		if o == nil || o.Currency == "" || o.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		key := o.Key()
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, o := range obs {
		c := *o
		c.Timestamp = c.Timestamp.UTC()
		s.data[o.Key()] = &c
	}

	return nil
}

// GetAll retrieves every observation, ordered by (currency, timestamp) ASC.
func (s *ObservationStore) GetAll(_ context.Context) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Observation, 0, len(s.data))
	for _, o := range s.data {
		c := *o
		result = append(result, &c)
	}
	sortObservations(result)
	return result, nil
}

// GetByCurrency retrieves observations for a currency, ordered by timestamp ASC.
func (s *ObservationStore) GetByCurrency(_ context.Context, currency string) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for _, o := range s.data {
		if o.Currency == currency {
			c := *o
			result = append(result, &c)
		}
	}
	sortObservations(result)
	return result, nil
}

func sortObservations(obs []*domain.Observation) {
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].Currency != obs[j].Currency {
			return obs[i].Currency < obs[j].Currency
		}
		return obs[i].Timestamp.Before(obs[j].Timestamp)
	})
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
