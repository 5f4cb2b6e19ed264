package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)

func featureRow(currency string, day int, rate float64) *domain.FeatureRow {
	return &domain.FeatureRow{
		Currency:             currency,
		Timestamp:            day0.AddDate(0, 0, day),
		Rate:                 rate,
		BaseCurrency:         "BRL",
		MA7d:                 rate,
		MA30d:                rate,
		ConsecutiveRunLength: 0,
		Trend:                domain.TrendUndefined,
		TrendIntensity:       domain.IntensityUndefined,
		Momentum:             domain.MomentumUndefined,
		PositionVsMA7:        domain.PositionBelow,
		PositionVsMA30:       domain.PositionBelow,
		VolatilityBucket:     domain.VolatilityUndefined,
	}
}

func TestFeatureRowStore_ReplaceAllAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureRowStore(conn)
	ctx := context.Background()

	full := featureRow("USD", 1, 0.21)
	full.Var1d = ptr(2.5)
	full.Volatility7d = ptr(0.0141)
	full.DiffMA7d = 0.005
	full.ConsecutiveRunLength = 1
	full.Trend = domain.TrendRising
	full.TrendIntensity = domain.IntensityModerate
	full.Momentum = domain.MomentumAccelerating
	full.PositionVsMA7 = domain.PositionAbove
	full.VolatilityBucket = domain.VolatilityStable
	full.CurrencyName = "US Dollar"
	full.CountryName = "United States"

	err := store.ReplaceAll(ctx, []*domain.FeatureRow{full, featureRow("USD", 0, 0.2), featureRow("EUR", 0, 0.18)})
	require.NoError(t, err)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "EUR", all[0].Currency)

	got := all[2]
	assert.True(t, got.Timestamp.Equal(full.Timestamp))
	require.NotNil(t, got.Var1d)
	assert.Equal(t, 2.5, *got.Var1d)
	assert.Nil(t, got.Var7d)
	assert.Nil(t, got.Var30d)
	require.NotNil(t, got.Volatility7d)
	assert.Equal(t, 0.0141, *got.Volatility7d)
	assert.Equal(t, 1, got.ConsecutiveRunLength)
	assert.Equal(t, domain.TrendRising, got.Trend)
	assert.Equal(t, domain.IntensityModerate, got.TrendIntensity)
	assert.Equal(t, domain.MomentumAccelerating, got.Momentum)
	assert.Equal(t, domain.PositionAbove, got.PositionVsMA7)
	assert.Equal(t, domain.VolatilityStable, got.VolatilityBucket)
	assert.Equal(t, "United States", got.CountryName)

	usd, err := store.GetByCurrency(ctx, "USD")
	require.NoError(t, err)
	require.Len(t, usd, 2)
	assert.True(t, usd[0].Timestamp.Before(usd[1].Timestamp))
}

func TestFeatureRowStore_ReplaceAllReplaces(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureRowStore(conn)
	ctx := context.Background()

	rows := []*domain.FeatureRow{featureRow("USD", 0, 0.2), featureRow("USD", 1, 0.21)}
	require.NoError(t, store.ReplaceAll(ctx, rows))
	first, err := store.GetAll(ctx)
	require.NoError(t, err)

	require.NoError(t, store.ReplaceAll(ctx, rows))
	second, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, store.ReplaceAll(ctx, []*domain.FeatureRow{featureRow("EUR", 0, 0.18)}))
	third, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "EUR", third[0].Currency)
}

func TestFeatureRowStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureRowStore(conn)
	err := store.ReplaceAll(context.Background(), []*domain.FeatureRow{featureRow("USD", 0, 1), featureRow("USD", 0, 2)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestFeatureRowStore_GetLatest(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureRowStore(conn)
	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, []*domain.FeatureRow{
		featureRow("USD", 0, 0.20), featureRow("USD", 1, 0.21),
		featureRow("EUR", 0, 0.18), featureRow("EUR", 1, 0.19),
		featureRow("JPY", 3, 29.0),
	}))

	latest, err := store.GetLatest(ctx, []string{"USD", "EUR"})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "EUR", latest[0].Currency)
	assert.Equal(t, 0.19, latest[0].Rate)
	assert.Equal(t, "USD", latest[1].Currency)

	all, err := store.GetLatest(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "JPY", all[0].Currency)
}

func TestParseDSN(t *testing.T) {
	opts, err := parseDSN("clickhouse://user:pw@db.local:9440/gold")
	require.NoError(t, err)
	assert.Equal(t, []string{"db.local:9440"}, opts.Addr)
	assert.Equal(t, "user", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Equal(t, "gold", opts.Auth.Database)

	opts, err = parseDSN("clickhouse://localhost")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9000"}, opts.Addr)

	_, err = parseDSN("postgres://localhost/x")
	assert.Error(t, err)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := DatabaseFromDSN("clickhouse://default:@localhost:9000/fx_gold")
	require.NoError(t, err)
	assert.Equal(t, "fx_gold", db)

	_, err = DatabaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)

	_, err = DatabaseFromDSN("http://localhost/fx")
	assert.Error(t, err)
}
