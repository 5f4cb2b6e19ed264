package snapshot

import (
	"context"
	"sync"

	"fx-trend-lab/internal/domain"
)

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu   sync.RWMutex
	snap *domain.Snapshot
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Set stores a copy of snap.
func (c *MemoryCache) Set(_ context.Context, snap *domain.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = cloneSnapshot(snap)
	return nil
}

// Get returns a copy of the cached snapshot or ErrMiss.
func (c *MemoryCache) Get(_ context.Context) (*domain.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, ErrMiss
	}
	return cloneSnapshot(c.snap), nil
}

// Clear drops the cached snapshot.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
	return nil
}

func cloneSnapshot(s *domain.Snapshot) *domain.Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Rows = make([]domain.SnapshotRow, len(s.Rows))
	for i, r := range s.Rows {
		if r.Var1d != nil {
			x := *r.Var1d
			r.Var1d = &x
		}
		c.Rows[i] = r
	}
	return &c
}

var _ Cache = (*MemoryCache)(nil)
