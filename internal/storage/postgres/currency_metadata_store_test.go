package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

func TestCurrencyMetadataStore_UpsertAndGet(t *testing.T) {
	pool := migratedPool(t)

	ctx := context.Background()
	store := NewCurrencyMetadataStore(pool)

	err := store.UpsertBulk(ctx, []*domain.CurrencyMetadata{
		{Code: "USD", Name: "US Dollar", Country: "United States"},
		{Code: "EUR", Name: "Euro", Country: "European Union"},
	})
	require.NoError(t, err)

	m, err := store.GetByCode(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, "United States", m.Country)

	require.NoError(t, store.UpsertBulk(ctx, []*domain.CurrencyMetadata{
		{Code: "USD", Name: "Dollar", Country: "USA"},
	}))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "EUR", all[0].Code)
	assert.Equal(t, "Dollar", all[1].Name)
}

func TestCurrencyMetadataStore_NotFound(t *testing.T) {
	pool := migratedPool(t)

	_, err := NewCurrencyMetadataStore(pool).GetByCode(context.Background(), "XYZ")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
