// Package narration produces the daily natural-language market summary.
package narration

import (
	"errors"
	"sort"
	"time"

	"fx-trend-lab/internal/domain"
)

// ErrNoData is returned when no watched currency has any row.
var ErrNoData = errors.New("narration: no data for watch-list")

// DefaultWatchList is the set of currencies summarized by default.
var DefaultWatchList = []string{"EUR", "USD", "RUB", "CNY", "INR", "ZAR", "GBP"}

// SelectDay returns the watched rows observed on the UTC calendar day of day.
// If none exist it falls back to the latest row of each watched currency.
// Rows are ordered by (currency, timestamp).
func SelectDay(rows []*domain.FeatureRow, watchList []string, day time.Time) ([]*domain.FeatureRow, error) {
	watched := make(map[string]bool, len(watchList))
	for _, c := range watchList {
		watched[c] = true
	}
	target := domain.DayOf(day)

	var selected []*domain.FeatureRow
	latest := make(map[string]*domain.FeatureRow)
	for _, r := range rows {
		if r == nil || !watched[r.Currency] {
			continue
		}
		if domain.DayOf(r.Timestamp).Equal(target) {
			selected = append(selected, r)
		}
		if cur, ok := latest[r.Currency]; !ok || r.Timestamp.After(cur.Timestamp) {
			latest[r.Currency] = r
		}
	}

	if len(selected) == 0 {
		for _, r := range latest {
			selected = append(selected, r)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoData
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Currency != selected[j].Currency {
			return selected[i].Currency < selected[j].Currency
		}
		return selected[i].Timestamp.Before(selected[j].Timestamp)
	})
	return selected, nil
}

// currenciesOf returns the distinct currencies of rows, sorted.
func currenciesOf(rows []*domain.FeatureRow) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if seen[r.Currency] {
			continue
		}
		seen[r.Currency] = true
		out = append(out, r.Currency)
	}
	sort.Strings(out)
	return out
}
