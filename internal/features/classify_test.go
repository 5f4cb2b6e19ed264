package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"fx-trend-lab/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestClassifyTrend(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		in   *float64
		want domain.Trend
	}{
		{nil, domain.TrendUndefined},
		{f(math.NaN()), domain.TrendUndefined},
		{f(3.0), domain.TrendRising},
		{f(2.0), domain.TrendStable},
		{f(2.0001), domain.TrendRising},
		{f(-2.0), domain.TrendStable},
		{f(-2.5), domain.TrendFalling},
		{f(0), domain.TrendStable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.ClassifyTrend(tt.in), "var_7d=%v", tt.in)
	}
}

func TestClassifyIntensity(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		in   *float64
		want domain.TrendIntensity
	}{
		{nil, domain.IntensityUndefined},
		{f(math.NaN()), domain.IntensityUndefined},
		{f(2.0), domain.IntensityWeak},
		{f(-1.5), domain.IntensityWeak},
		{f(5.0), domain.IntensityModerate},
		{f(-5.0), domain.IntensityModerate},
		{f(5.01), domain.IntensityStrong},
		{f(-7), domain.IntensityStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.ClassifyIntensity(tt.in), "var_7d=%v", tt.in)
	}
}

// var_7d = 3.0 lies in (2, 5]: rising with moderate intensity, never weak.
func TestClassify_BoundaryVar7dThree(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, domain.TrendRising, th.ClassifyTrend(f(3.0)))
	assert.Equal(t, domain.IntensityModerate, th.ClassifyIntensity(f(3.0)))
	assert.NotEqual(t, domain.IntensityWeak, th.ClassifyIntensity(f(3.0)))
}

func TestClassifyMomentum(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name       string
		var1, var7 *float64
		want       domain.Momentum
	}{
		{"var1 nil", nil, f(1), domain.MomentumUndefined},
		{"var7 nil", f(1), nil, domain.MomentumUndefined},
		{"nan", f(math.NaN()), f(1), domain.MomentumUndefined},
		{"up accelerating", f(1.0), f(3.5), domain.MomentumAccelerating},
		{"up decelerating", f(0.2), f(3.5), domain.MomentumDecelerating},
		{"up tie decelerating", f(0.5), f(3.5), domain.MomentumDecelerating},
		{"down accelerating", f(-1.0), f(-3.5), domain.MomentumAccelerating},
		{"down decelerating", f(0.1), f(-3.5), domain.MomentumDecelerating},
		{"down tie decelerating", f(-0.5), f(-3.5), domain.MomentumDecelerating},
		{"flat week", f(2), f(0), domain.MomentumNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, th.ClassifyMomentum(tt.var1, tt.var7))
		})
	}
}

func TestClassifyPosition(t *testing.T) {
	assert.Equal(t, domain.PositionAbove, ClassifyPosition(1.1, 1.0))
	assert.Equal(t, domain.PositionBelow, ClassifyPosition(0.9, 1.0))
	assert.Equal(t, domain.PositionBelow, ClassifyPosition(1.0, 1.0))
}

func TestClassifyVolatility(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		in   *float64
		want domain.VolatilityBucket
	}{
		{nil, domain.VolatilityUndefined},
		{f(math.NaN()), domain.VolatilityUndefined},
		{f(0.11), domain.VolatilityVeryVolatile},
		{f(0.10), domain.VolatilityNormal},
		{f(0.06), domain.VolatilityNormal},
		{f(0.05), domain.VolatilityStable},
		{f(0), domain.VolatilityStable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.ClassifyVolatility(tt.in), "vol_7d=%v", tt.in)
	}
}

func TestThresholds_Configurable(t *testing.T) {
	th := DefaultThresholds()
	th.TrendRising = 0.5
	th.TrendFalling = -0.5
	th.VolatilityVeryVolatile = 0.001
	th.VolatilityNormal = 0.0005

	assert.Equal(t, domain.TrendRising, th.ClassifyTrend(f(1)))
	assert.Equal(t, domain.TrendFalling, th.ClassifyTrend(f(-1)))
	assert.Equal(t, domain.VolatilityVeryVolatile, th.ClassifyVolatility(f(0.01)))
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	bad := []func(*Thresholds){
		func(th *Thresholds) { th.TrendFalling = 3 },
		func(th *Thresholds) { th.IntensityStrong = 1 },
		func(th *Thresholds) { th.IntensityModerate = -1 },
		func(th *Thresholds) { th.MomentumDivisor = 0 },
		func(th *Thresholds) { th.VolatilityVeryVolatile = 0.01 },
	}
	for i, mutate := range bad {
		th := DefaultThresholds()
		mutate(&th)
		assert.ErrorIs(t, th.Validate(), ErrInvalidThresholds, "case %d", i)
	}
}
