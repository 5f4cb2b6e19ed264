// Package gold joins feature rows with reference data and publishes the gold table.
package gold

import (
	"sort"

	"fx-trend-lab/internal/domain"
)

// MergeReport summarizes a metadata join.
type MergeReport struct {
	Matched int      // rows that found metadata
	Total   int      // rows processed
	Gaps    []string // distinct currency codes without metadata, sorted
}

// MetadataIndex indexes metadata by currency code.
func MetadataIndex(items []*domain.CurrencyMetadata) map[string]*domain.CurrencyMetadata {
	idx := make(map[string]*domain.CurrencyMetadata, len(items))
	for _, m := range items {
		if m == nil {
			continue
		}
		idx[m.Code] = m
	}
	return idx
}

// MergeMetadata left-joins rows with metadata on currency code, in place.
// Rows without a match keep empty names and are reported once in Gaps.
func MergeMetadata(rows []*domain.FeatureRow, metadata map[string]*domain.CurrencyMetadata) MergeReport {
	report := MergeReport{Total: len(rows)}
	missing := make(map[string]struct{})

	for _, r := range rows {
		m, ok := metadata[r.Currency]
		if !ok || m == nil {
			r.CurrencyName = ""
			r.CountryName = ""
			missing[r.Currency] = struct{}{}
			continue
		}
		r.CurrencyName = m.Name
		r.CountryName = m.Country
		report.Matched++
	}

	if len(missing) > 0 {
		report.Gaps = make([]string, 0, len(missing))
		for code := range missing {
			report.Gaps = append(report.Gaps, code)
		}
		sort.Strings(report.Gaps)
	}
	return report
}
