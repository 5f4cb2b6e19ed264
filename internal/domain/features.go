package domain

import "time"

// FeatureRow is an Observation extended with derived analytical fields.
// Corresponds to gold_feature_rows table in ClickHouse.
type FeatureRow struct {
	Currency     string    // ISO 4217 quote currency code
	Timestamp    time.Time // observation instant, UTC
	Rate         float64   // observed rate
	BaseCurrency string    // ISO 4217 base currency code

	Var1d  *float64 // % change vs 1 observation earlier, NULL if no history
	Var7d  *float64 // % change vs 7 observations earlier, NULL if no history
	Var30d *float64 // % change vs 30 observations earlier, NULL if no history

	MA7d  float64 // trailing mean over up to 7 observations
	MA30d float64 // trailing mean over up to 30 observations

	Volatility7d  *float64 // trailing sample std, NULL until 2 samples
	Volatility30d *float64 // trailing sample std, NULL until 2 samples

	DiffMA7d  float64 // |rate - ma_7d|
	DiffMA30d float64 // |rate - ma_30d|

	ConsecutiveRunLength int // same-direction run length ending here, 0 if unchanged

	Trend            Trend
	TrendIntensity   TrendIntensity
	Momentum         Momentum
	PositionVsMA7    Position
	PositionVsMA30   Position
	VolatilityBucket VolatilityBucket

	CurrencyName string // from currency metadata, empty on gap
	CountryName  string // from currency metadata, empty on gap
}

// Key returns the uniqueness key of the row.
func (r *FeatureRow) Key() ObservationKey {
	return ObservationKey{Currency: r.Currency, Timestamp: r.Timestamp.UTC().UnixMilli()}
}

// Clone returns a deep copy of the row.
func (r *FeatureRow) Clone() *FeatureRow {
	c := *r
	c.Var1d = clonePtr(r.Var1d)
	c.Var7d = clonePtr(r.Var7d)
	c.Var30d = clonePtr(r.Var30d)
	c.Volatility7d = clonePtr(r.Volatility7d)
	c.Volatility30d = clonePtr(r.Volatility30d)
	return &c
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

// Trend is the direction label derived from var_7d.
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendFalling   Trend = "falling"
	TrendStable    Trend = "stable"
	TrendUndefined Trend = "undefined"
)

// TrendIntensity is the magnitude label derived from |var_7d|.
type TrendIntensity string

const (
	IntensityStrong    TrendIntensity = "strong"
	IntensityModerate  TrendIntensity = "moderate"
	IntensityWeak      TrendIntensity = "weak"
	IntensityUndefined TrendIntensity = "undefined"
)

// Momentum compares the last daily move with the average daily move of the week.
type Momentum string

const (
	MomentumAccelerating Momentum = "accelerating"
	MomentumDecelerating Momentum = "decelerating"
	MomentumNeutral      Momentum = "neutral"
	MomentumUndefined    Momentum = "undefined"
)

// Position is the rate location relative to a moving average.
type Position string

const (
	PositionAbove Position = "above"
	PositionBelow Position = "below"
)

// VolatilityBucket is the regime label derived from volatility_7d.
type VolatilityBucket string

const (
	VolatilityVeryVolatile VolatilityBucket = "very_volatile"
	VolatilityNormal       VolatilityBucket = "normal"
	VolatilityStable       VolatilityBucket = "stable"
	VolatilityUndefined    VolatilityBucket = "undefined"
)

// String returns the string representation of Trend.
func (t Trend) String() string { return string(t) }

// String returns the string representation of TrendIntensity.
func (t TrendIntensity) String() string { return string(t) }

// String returns the string representation of Momentum.
func (m Momentum) String() string { return string(m) }

// String returns the string representation of Position.
func (p Position) String() string { return string(p) }

// String returns the string representation of VolatilityBucket.
func (v VolatilityBucket) String() string { return string(v) }
