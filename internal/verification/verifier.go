// Package verification checks that the stored gold table can be reproduced
// from the stored observation history.
package verification

import (
	"context"
	"math"

	"fx-trend-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Field    string // field name
	Expected any    // stored value
	Actual   any    // recomputed value
}

// RowResult is the result of verifying one (currency, timestamp) row.
type RowResult struct {
	Key         domain.ObservationKey
	Match       bool              // true if all fields match
	Missing     bool              // recomputed row absent from the store
	Extra       bool              // stored row not produced by recomputation
	Divergences []FieldDivergence // list of divergent fields
}

// Report contains results for a verification run.
type Report struct {
	TotalRows     int         // rows in the union of stored and recomputed
	MatchedRows   int         // rows that matched exactly
	DivergentRows int         // rows present on both sides with divergences
	MissingRows   int         // recomputed rows the store lacks
	ExtraRows     int         // stored rows recomputation does not produce
	Results       []RowResult // non-matching rows only
}

// OK reports whether the stored table is reproducible.
func (r *Report) OK() bool {
	return r.DivergentRows == 0 && r.MissingRows == 0 && r.ExtraRows == 0
}

// Verifier verifies the gold table.
type Verifier interface {
	// VerifyCurrency verifies the rows of one currency.
	VerifyCurrency(ctx context.Context, currency string) (*Report, error)

	// VerifyAll verifies every stored row.
	VerifyAll(ctx context.Context) (*Report, error)
}

// CompareFeatureRows compares two feature rows and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareFeatureRows(stored, recomputed *domain.FeatureRow) []FieldDivergence {
	var d divergences

	d.str("Currency", stored.Currency, recomputed.Currency)
	if !stored.Timestamp.Equal(recomputed.Timestamp) {
		d.add("Timestamp", stored.Timestamp, recomputed.Timestamp)
	}
	d.float("Rate", stored.Rate, recomputed.Rate)
	d.str("BaseCurrency", stored.BaseCurrency, recomputed.BaseCurrency)

	// Variations
	d.floatPtr("Var1d", stored.Var1d, recomputed.Var1d)
	d.floatPtr("Var7d", stored.Var7d, recomputed.Var7d)
	d.floatPtr("Var30d", stored.Var30d, recomputed.Var30d)

	// Rolling windows
	d.float("MA7d", stored.MA7d, recomputed.MA7d)
	d.float("MA30d", stored.MA30d, recomputed.MA30d)
	d.floatPtr("Volatility7d", stored.Volatility7d, recomputed.Volatility7d)
	d.floatPtr("Volatility30d", stored.Volatility30d, recomputed.Volatility30d)
	d.float("DiffMA7d", stored.DiffMA7d, recomputed.DiffMA7d)
	d.float("DiffMA30d", stored.DiffMA30d, recomputed.DiffMA30d)

	if stored.ConsecutiveRunLength != recomputed.ConsecutiveRunLength {
		d.add("ConsecutiveRunLength", stored.ConsecutiveRunLength, recomputed.ConsecutiveRunLength)
	}

	// Labels must match exactly
	d.str("Trend", stored.Trend.String(), recomputed.Trend.String())
	d.str("TrendIntensity", stored.TrendIntensity.String(), recomputed.TrendIntensity.String())
	d.str("Momentum", stored.Momentum.String(), recomputed.Momentum.String())
	d.str("PositionVsMA7", stored.PositionVsMA7.String(), recomputed.PositionVsMA7.String())
	d.str("PositionVsMA30", stored.PositionVsMA30.String(), recomputed.PositionVsMA30.String())
	d.str("VolatilityBucket", stored.VolatilityBucket.String(), recomputed.VolatilityBucket.String())

	// Metadata
	d.str("CurrencyName", stored.CurrencyName, recomputed.CurrencyName)
	d.str("CountryName", stored.CountryName, recomputed.CountryName)

	return d
}

type divergences []FieldDivergence

func (d *divergences) add(field string, expected, actual any) {
	*d = append(*d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
}

func (d *divergences) str(field, expected, actual string) {
	if expected != actual {
		d.add(field, expected, actual)
	}
}

func (d *divergences) float(field string, expected, actual float64) {
	if !floatEquals(expected, actual) {
		d.add(field, expected, actual)
	}
}

func (d *divergences) floatPtr(field string, expected, actual *float64) {
	if !floatPtrEquals(expected, actual) {
		d.add(field, expected, actual)
	}
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// floatPtrEquals compares two *float64 values within FloatTolerance.
// Returns true if both are nil, or both are non-nil and equal.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}
