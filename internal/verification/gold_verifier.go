package verification

import (
	"context"
	"fmt"
	"sort"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/features"
	"fx-trend-lab/internal/gold"
	"fx-trend-lab/internal/storage"
)

// GoldVerifier implements Verifier by recomputing feature rows from the
// observation store and comparing them with the feature row store.
type GoldVerifier struct {
	observationStore storage.ObservationStore
	featureRowStore  storage.FeatureRowStore
	metadataStore    storage.CurrencyMetadataStore // optional
	engine           *features.Engine
}

// GoldVerifierOptions contains configuration for creating a GoldVerifier.
type GoldVerifierOptions struct {
	ObservationStore storage.ObservationStore
	FeatureRowStore  storage.FeatureRowStore
	// MetadataStore joins names into recomputed rows; nil compares them as empty.
	MetadataStore storage.CurrencyMetadataStore
	Engine        *features.Engine
}

// NewGoldVerifier creates a new GoldVerifier.
func NewGoldVerifier(opts GoldVerifierOptions) *GoldVerifier {
	engine := opts.Engine
	if engine == nil {
		engine = features.NewEngine(features.DefaultThresholds())
	}
	return &GoldVerifier{
		observationStore: opts.ObservationStore,
		featureRowStore:  opts.FeatureRowStore,
		metadataStore:    opts.MetadataStore,
		engine:           engine,
	}
}

// VerifyCurrency verifies the rows of one currency.
func (v *GoldVerifier) VerifyCurrency(ctx context.Context, currency string) (*Report, error) {
	obs, err := v.observationStore.GetByCurrency(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	stored, err := v.featureRowStore.GetByCurrency(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("load feature rows: %w", err)
	}
	return v.verify(ctx, obs, stored)
}

// VerifyAll verifies every stored row.
func (v *GoldVerifier) VerifyAll(ctx context.Context) (*Report, error) {
	obs, err := v.observationStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	stored, err := v.featureRowStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feature rows: %w", err)
	}
	return v.verify(ctx, obs, stored)
}

func (v *GoldVerifier) verify(ctx context.Context, obs []*domain.Observation, stored []*domain.FeatureRow) (*Report, error) {
	recomputed, err := v.engine.Compute(obs)
	if err != nil {
		return nil, fmt.Errorf("recompute features: %w", err)
	}
	if v.metadataStore != nil {
		items, err := v.metadataStore.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load metadata: %w", err)
		}
		gold.MergeMetadata(recomputed, gold.MetadataIndex(items))
	}

	storedByKey := indexRows(stored)
	recomputedByKey := indexRows(recomputed)

	keys := make([]domain.ObservationKey, 0, len(storedByKey)+len(recomputedByKey))
	for k := range storedByKey {
		keys = append(keys, k)
	}
	for k := range recomputedByKey {
		if _, ok := storedByKey[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Currency != keys[j].Currency {
			return keys[i].Currency < keys[j].Currency
		}
		return keys[i].Timestamp < keys[j].Timestamp
	})

	report := &Report{TotalRows: len(keys)}
	for _, k := range keys {
		s, hasStored := storedByKey[k]
		r, hasRecomputed := recomputedByKey[k]

		switch {
		case !hasStored:
			report.MissingRows++
			report.Results = append(report.Results, RowResult{Key: k, Missing: true})
		case !hasRecomputed:
			report.ExtraRows++
			report.Results = append(report.Results, RowResult{Key: k, Extra: true})
		default:
			divs := CompareFeatureRows(s, r)
			if len(divs) == 0 {
				report.MatchedRows++
				continue
			}
			report.DivergentRows++
			report.Results = append(report.Results, RowResult{Key: k, Divergences: divs})
		}
	}
	return report, nil
}

func indexRows(rows []*domain.FeatureRow) map[domain.ObservationKey]*domain.FeatureRow {
	out := make(map[domain.ObservationKey]*domain.FeatureRow, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		if _, ok := out[r.Key()]; !ok {
			out[r.Key()] = r
		}
	}
	return out
}

var _ Verifier = (*GoldVerifier)(nil)
