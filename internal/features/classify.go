package features

import (
	"errors"
	"math"

	"fx-trend-lab/internal/domain"
)

// Thresholds holds the scale-dependent constants used by the classifiers.
// Defaults are tuned for BRL-denominated rates.
type Thresholds struct {
	TrendRising  float64 // var_7d above this is rising
	TrendFalling float64 // var_7d below this is falling

	IntensityStrong   float64 // |var_7d| above this is strong
	IntensityModerate float64 // |var_7d| above this is moderate

	MomentumDivisor float64 // var_7d / divisor is the average daily move

	VolatilityVeryVolatile float64 // volatility_7d above this is very_volatile
	VolatilityNormal       float64 // volatility_7d above this is normal
}

// DefaultThresholds returns the thresholds used for BRL-based quotes.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TrendRising:            2,
		TrendFalling:           -2,
		IntensityStrong:        5,
		IntensityModerate:      2,
		MomentumDivisor:        7,
		VolatilityVeryVolatile: 0.10,
		VolatilityNormal:       0.05,
	}
}

// ErrInvalidThresholds is returned when thresholds are not ordered consistently.
var ErrInvalidThresholds = errors.New("invalid classification thresholds")

// Validate checks threshold ordering.
func (t Thresholds) Validate() error {
	switch {
	case t.TrendFalling > t.TrendRising:
		return ErrInvalidThresholds
	case t.IntensityModerate < 0 || t.IntensityStrong < t.IntensityModerate:
		return ErrInvalidThresholds
	case t.MomentumDivisor <= 0:
		return ErrInvalidThresholds
	case t.VolatilityNormal < 0 || t.VolatilityVeryVolatile < t.VolatilityNormal:
		return ErrInvalidThresholds
	}
	return nil
}

func undefined(v *float64) bool {
	return v == nil || math.IsNaN(*v)
}

// ClassifyTrend maps var_7d to a trend label.
func (t Thresholds) ClassifyTrend(var7d *float64) domain.Trend {
	if undefined(var7d) {
		return domain.TrendUndefined
	}
	switch x := *var7d; {
	case x > t.TrendRising:
		return domain.TrendRising
	case x < t.TrendFalling:
		return domain.TrendFalling
	default:
		return domain.TrendStable
	}
}

// ClassifyIntensity maps |var_7d| to an intensity label.
func (t Thresholds) ClassifyIntensity(var7d *float64) domain.TrendIntensity {
	if undefined(var7d) {
		return domain.IntensityUndefined
	}
	switch x := math.Abs(*var7d); {
	case x > t.IntensityStrong:
		return domain.IntensityStrong
	case x > t.IntensityModerate:
		return domain.IntensityModerate
	default:
		return domain.IntensityWeak
	}
}

// ClassifyMomentum compares var_1d with the average daily move implied by var_7d.
func (t Thresholds) ClassifyMomentum(var1d, var7d *float64) domain.Momentum {
	if undefined(var1d) || undefined(var7d) {
		return domain.MomentumUndefined
	}
	daily, weekly := *var1d, *var7d
	avg := weekly / t.MomentumDivisor

	switch {
	case weekly > 0:
		if daily > avg {
			return domain.MomentumAccelerating
		}
		return domain.MomentumDecelerating
	case weekly < 0:
		if daily < avg {
			return domain.MomentumAccelerating
		}
		return domain.MomentumDecelerating
	default:
		return domain.MomentumNeutral
	}
}

// ClassifyPosition reports whether rate is above the moving average.
// Ties count as below.
func ClassifyPosition(rate, ma float64) domain.Position {
	if rate > ma {
		return domain.PositionAbove
	}
	return domain.PositionBelow
}

// ClassifyVolatility maps volatility_7d to a regime bucket.
func (t Thresholds) ClassifyVolatility(vol7d *float64) domain.VolatilityBucket {
	if undefined(vol7d) {
		return domain.VolatilityUndefined
	}
	switch x := *vol7d; {
	case x > t.VolatilityVeryVolatile:
		return domain.VolatilityVeryVolatile
	case x > t.VolatilityNormal:
		return domain.VolatilityNormal
	default:
		return domain.VolatilityStable
	}
}

// Classify fills every categorical field of row from its numeric fields.
func (t Thresholds) Classify(row *domain.FeatureRow) {
	row.Trend = t.ClassifyTrend(row.Var7d)
	row.TrendIntensity = t.ClassifyIntensity(row.Var7d)
	row.Momentum = t.ClassifyMomentum(row.Var1d, row.Var7d)
	row.PositionVsMA7 = ClassifyPosition(row.Rate, row.MA7d)
	row.PositionVsMA30 = ClassifyPosition(row.Rate, row.MA30d)
	row.VolatilityBucket = t.ClassifyVolatility(row.Volatility7d)
}
