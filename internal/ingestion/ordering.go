package ingestion

import (
	"errors"
	"sort"

	"fx-trend-lab/internal/domain"
)

// ErrInvalidOrdering is returned when observations are not properly ordered.
var ErrInvalidOrdering = errors.New("observations are not in deterministic order")

// SortObservations orders observations by (currency ASC, timestamp ASC).
// The sort is stable so equal keys keep their input order.
func SortObservations(obs []*domain.Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return compareObservations(obs[i], obs[j]) < 0
	})
}

// ValidateOrdering checks that observations are strictly ordered by
// (currency, timestamp). Equal keys are a violation.
// Returns ErrInvalidOrdering if not.
func ValidateOrdering(obs []*domain.Observation) error {
	for i := 1; i < len(obs); i++ {
		if compareObservations(obs[i-1], obs[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareObservations returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (currency ASC, timestamp ASC)
func compareObservations(a, b *domain.Observation) int {
	if a.Currency != b.Currency {
		if a.Currency < b.Currency {
			return -1
		}
		return 1
	}
	return a.Timestamp.Compare(b.Timestamp)
}
