package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)

func obs(currency string, day int, rate float64) *domain.Observation {
	return &domain.Observation{
		Currency:     currency,
		Timestamp:    day0.AddDate(0, 0, day),
		Rate:         rate,
		BaseCurrency: "BRL",
	}
}

func TestObservationStore_InsertBulkAndGet(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Observation{
		obs("USD", 1, 0.21),
		obs("EUR", 0, 0.18),
		obs("USD", 0, 0.20),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 observations, got %d", len(all))
	}
	if all[0].Currency != "EUR" || all[1].Rate != 0.20 || all[2].Rate != 0.21 {
		t.Errorf("Unexpected order: %v %v %v", all[0], all[1], all[2])
	}

	usd, err := store.GetByCurrency(ctx, "USD")
	if err != nil {
		t.Fatalf("GetByCurrency failed: %v", err)
	}
	if len(usd) != 2 {
		t.Errorf("Expected 2 USD observations, got %d", len(usd))
	}
}

func TestObservationStore_DuplicateKey(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.Observation{obs("USD", 0, 1)}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.Observation{obs("USD", 1, 1), obs("USD", 0, 2)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Batch is atomic: the non-duplicate row was not inserted.
	all, _ := store.GetAll(ctx)
	if len(all) != 1 {
		t.Errorf("Expected 1 observation after failed batch, got %d", len(all))
	}
	if all[0].Rate != 1 {
		t.Errorf("Stored observation was rewritten: rate %v", all[0].Rate)
	}
}

func TestObservationStore_IntraBatchDuplicate(t *testing.T) {
	store := NewObservationStore()

	err := store.InsertBulk(context.Background(), []*domain.Observation{obs("USD", 0, 1), obs("USD", 0, 2)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestObservationStore_InvalidInput(t *testing.T) {
	store := NewObservationStore()

	err := store.InsertBulk(context.Background(), []*domain.Observation{{Rate: 1, Timestamp: day0}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestObservationStore_ReturnsCopies(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	o := obs("USD", 0, 1)
	_ = store.InsertBulk(ctx, []*domain.Observation{o})
	o.Rate = 99

	all, _ := store.GetAll(ctx)
	all[0].Rate = 42

	again, _ := store.GetAll(ctx)
	if again[0].Rate != 1 {
		t.Errorf("Store state leaked through pointers: rate %v", again[0].Rate)
	}
}
