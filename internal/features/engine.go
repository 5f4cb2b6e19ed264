// Package features derives per-currency analytical rows from an
// observation history. It is a pure computation: no I/O, no clock.
package features

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"fx-trend-lab/internal/domain"
)

// Horizons and windows of the derived columns.
const (
	HorizonShort = 1
	HorizonWeek  = 7
	HorizonMonth = 30
	WindowWeek   = 7
	WindowMonth  = 30
)

var (
	// ErrInvalidObservation is returned for nil rows, empty currency codes
	// and non-positive or non-finite rates.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrDuplicateObservation is returned when two rows share (currency, timestamp).
	ErrDuplicateObservation = errors.New("duplicate observation key")
)

// Engine computes feature rows.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates an engine with the given classification thresholds.
func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Thresholds returns the classification thresholds in use.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Compute derives one FeatureRow per observation.
// Input is sorted by (currency, timestamp) internally; the caller's slice is
// not modified. Every rolling computation is scoped to one currency group.
//
// Columns per group, on rates r_0..r_n:
//   - var_h[i] = (r_i - r_{i-h}) / r_{i-h} * 100, NULL if i < h
//   - ma_w[i] = mean(r_{max(0,i-w+1)}..r_i)
//   - volatility_w[i] = sample std over the same window, NULL if < 2 samples
//   - diff_ma_w[i] = |r_i - ma_w[i]|
//   - consecutive_run_length[i] = length of the same-direction run holding i
func (e *Engine) Compute(observations []*domain.Observation) ([]*domain.FeatureRow, error) {
	if len(observations) == 0 {
		return nil, nil
	}

	sorted := make([]*domain.Observation, len(observations))
	copy(sorted, observations)
	for i, o := range sorted {
		if err := checkObservation(o); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Currency != sorted[j].Currency {
			return sorted[i].Currency < sorted[j].Currency
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	result := make([]*domain.FeatureRow, 0, len(sorted))
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i].Currency == sorted[start].Currency {
			if sorted[i].Timestamp.Equal(sorted[i-1].Timestamp) {
				return nil, fmt.Errorf("%w: %s at %s", ErrDuplicateObservation,
					sorted[i].Currency, sorted[i].Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
			}
			continue
		}
		result = append(result, e.computeGroup(sorted[start:i])...)
		start = i
	}

	return result, nil
}

// computeGroup derives rows for one currency. group is ordered by timestamp.
func (e *Engine) computeGroup(group []*domain.Observation) []*domain.FeatureRow {
	rates := make([]float64, len(group))
	for i, o := range group {
		rates[i] = o.Rate
	}

	var1 := pctChange(rates, HorizonShort)
	var7 := pctChange(rates, HorizonWeek)
	var30 := pctChange(rates, HorizonMonth)
	ma7 := trailingMean(rates, WindowWeek)
	ma30 := trailingMean(rates, WindowMonth)
	vol7 := trailingStd(rates, WindowWeek)
	vol30 := trailingStd(rates, WindowMonth)
	runs := runLengths(rates)

	rows := make([]*domain.FeatureRow, len(group))
	for i, o := range group {
		row := &domain.FeatureRow{
			Currency:             o.Currency,
			Timestamp:            o.Timestamp.UTC(),
			Rate:                 o.Rate,
			BaseCurrency:         o.BaseCurrency,
			Var1d:                var1[i],
			Var7d:                var7[i],
			Var30d:               var30[i],
			MA7d:                 ma7[i],
			MA30d:                ma30[i],
			Volatility7d:         vol7[i],
			Volatility30d:        vol30[i],
			DiffMA7d:             math.Abs(o.Rate - ma7[i]),
			DiffMA30d:            math.Abs(o.Rate - ma30[i]),
			ConsecutiveRunLength: runs[i],
		}
		e.thresholds.Classify(row)
		rows[i] = row
	}
	return rows
}

func checkObservation(o *domain.Observation) error {
	if o == nil {
		return fmt.Errorf("%w: nil", ErrInvalidObservation)
	}
	if o.Currency == "" {
		return fmt.Errorf("%w: empty currency", ErrInvalidObservation)
	}
	if o.Timestamp.IsZero() {
		return fmt.Errorf("%w: %s has zero timestamp", ErrInvalidObservation, o.Currency)
	}
	if math.IsNaN(o.Rate) || math.IsInf(o.Rate, 0) || o.Rate <= 0 {
		return fmt.Errorf("%w: %s rate %v", ErrInvalidObservation, o.Currency, o.Rate)
	}
	return nil
}
