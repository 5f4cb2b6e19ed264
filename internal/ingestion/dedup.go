package ingestion

import "fx-trend-lab/internal/domain"

// MergeResult is the outcome of merging a new batch into the history.
type MergeResult struct {
	// All is history plus accepted new rows, sorted by (currency, timestamp).
	All []*domain.Observation
	// Added holds the accepted new rows in input order. These are the rows
	// to append to the observation store.
	Added []*domain.Observation
	// Duplicates counts incoming rows dropped because their key was taken.
	Duplicates int
}

// Merge combines history with incoming so that no two rows share
// (currency, timestamp). The first-seen row wins: a persisted row is never
// replaced by a later fetch, and inside one slice earlier rows beat later ones.
// Duplicates inside history itself are collapsed too and counted.
// Neither input slice is modified.
func Merge(history, incoming []*domain.Observation) MergeResult {
	seen := make(map[domain.ObservationKey]struct{}, len(history)+len(incoming))
	result := MergeResult{
		All: make([]*domain.Observation, 0, len(history)+len(incoming)),
	}

	for _, o := range history {
		if o == nil {
			continue
		}
		key := o.Key()
		if _, ok := seen[key]; ok {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		result.All = append(result.All, o)
	}

	for _, o := range incoming {
		if o == nil {
			continue
		}
		key := o.Key()
		if _, ok := seen[key]; ok {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		result.All = append(result.All, o)
		result.Added = append(result.Added, o)
	}

	SortObservations(result.All)
	return result
}
