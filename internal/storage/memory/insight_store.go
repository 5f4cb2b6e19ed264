package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// InsightStore is an in-memory implementation of storage.InsightStore.
type InsightStore struct {
	mu     sync.RWMutex
	byDate map[time.Time]*domain.DailyInsight // keyed by UTC midnight
}

// NewInsightStore creates a new in-memory insight store.
func NewInsightStore() *InsightStore {
	return &InsightStore{
		byDate: make(map[time.Time]*domain.DailyInsight),
	}
}

// Insert adds a new insight. Returns ErrDuplicateKey if the date exists.
func (s *InsightStore) Insert(_ context.Context, insight *domain.DailyInsight) error {
	if insight == nil || insight.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	day := domain.DayOf(insight.Date)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byDate[day]; exists {
		return storage.ErrDuplicateKey
	}

	s.byDate[day] = cloneInsight(insight, day)
	return nil
}

// GetByDate retrieves the insight of a calendar day. Returns ErrNotFound if not exists.
func (s *InsightStore) GetByDate(_ context.Context, day time.Time) (*domain.DailyInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := domain.DayOf(day)
	insight, exists := s.byDate[d]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneInsight(insight, d), nil
}

// GetAll retrieves all insights, ordered by date ASC.
func (s *InsightStore) GetAll(_ context.Context) ([]*domain.DailyInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DailyInsight, 0, len(s.byDate))
	for day, insight := range s.byDate {
		result = append(result, cloneInsight(insight, day))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func cloneInsight(in *domain.DailyInsight, day time.Time) *domain.DailyInsight {
	c := *in
	c.Date = day
	c.Currencies = append([]string(nil), in.Currencies...)
	return &c
}

var _ storage.InsightStore = (*InsightStore)(nil)
