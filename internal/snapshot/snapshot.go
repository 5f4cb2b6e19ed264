// Package snapshot builds and caches the latest dashboard snapshot.
package snapshot

import (
	"context"
	"errors"
	"sort"
	"time"

	"fx-trend-lab/internal/domain"
)

// ErrMiss is returned when no snapshot is cached.
var ErrMiss = errors.New("snapshot: cache miss")

// Cache stores the latest snapshot.
type Cache interface {
	Set(ctx context.Context, snap *domain.Snapshot) error
	Get(ctx context.Context) (*domain.Snapshot, error)
	// Clear drops the cached snapshot. Clearing an empty cache is not an error.
	Clear(ctx context.Context) error
}

// Build returns the rows at the latest timestamp for the watch-list currencies.
// An empty watch-list selects every currency. Rows are ordered by currency.
// Returns nil if no row matches.
func Build(rows []*domain.FeatureRow, watchList []string, generatedAt time.Time) *domain.Snapshot {
	watched := make(map[string]bool, len(watchList))
	for _, c := range watchList {
		watched[c] = true
	}

	var latest time.Time
	var selected []*domain.FeatureRow
	for _, r := range rows {
		if r == nil || (len(watched) > 0 && !watched[r.Currency]) {
			continue
		}
		ts := r.Timestamp.UTC()
		switch {
		case ts.After(latest):
			latest = ts
			selected = append(selected[:0], r)
		case ts.Equal(latest):
			selected = append(selected, r)
		}
	}
	if len(selected) == 0 {
		return nil
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Currency < selected[j].Currency
	})

	snap := &domain.Snapshot{
		Timestamp:   latest,
		GeneratedAt: generatedAt.UTC(),
		Rows:        make([]domain.SnapshotRow, 0, len(selected)),
	}
	for _, r := range selected {
		snap.Rows = append(snap.Rows, RowOf(r))
	}
	return snap
}

// RowOf projects a feature row to its dashboard view.
func RowOf(r *domain.FeatureRow) domain.SnapshotRow {
	var v1 *float64
	if r.Var1d != nil {
		x := *r.Var1d
		v1 = &x
	}
	return domain.SnapshotRow{
		Currency:         r.Currency,
		CountryName:      r.CountryName,
		Rate:             r.Rate,
		Var1d:            v1,
		MA7d:             r.MA7d,
		Trend:            r.Trend.String(),
		TrendIntensity:   r.TrendIntensity.String(),
		Momentum:         r.Momentum.String(),
		PositionVsMA7:    r.PositionVsMA7.String(),
		VolatilityBucket: r.VolatilityBucket.String(),
	}
}
