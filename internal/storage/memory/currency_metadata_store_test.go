package memory

import (
	"context"
	"errors"
	"testing"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

func TestCurrencyMetadataStore_UpsertAndGet(t *testing.T) {
	store := NewCurrencyMetadataStore()
	ctx := context.Background()

	err := store.UpsertBulk(ctx, []*domain.CurrencyMetadata{
		{Code: "USD", Name: "US Dollar", Country: "United States"},
		{Code: "EUR", Name: "Euro", Country: "European Union"},
	})
	if err != nil {
		t.Fatalf("UpsertBulk failed: %v", err)
	}

	m, err := store.GetByCode(ctx, "USD")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if m.Country != "United States" {
		t.Errorf("Country mismatch: got %s", m.Country)
	}

	// Upsert overwrites
	_ = store.UpsertBulk(ctx, []*domain.CurrencyMetadata{{Code: "USD", Name: "Dollar", Country: "USA"}})
	m, _ = store.GetByCode(ctx, "USD")
	if m.Name != "Dollar" {
		t.Errorf("Expected updated name, got %s", m.Name)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 2 || all[0].Code != "EUR" {
		t.Errorf("Expected 2 rows ordered by code, got %v", all)
	}
}

func TestCurrencyMetadataStore_NotFound(t *testing.T) {
	store := NewCurrencyMetadataStore()

	_, err := store.GetByCode(context.Background(), "XYZ")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCurrencyMetadataStore_InvalidInput(t *testing.T) {
	store := NewCurrencyMetadataStore()

	err := store.UpsertBulk(context.Background(), []*domain.CurrencyMetadata{{Name: "nameless"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
