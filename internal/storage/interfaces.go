package storage

import (
	"context"
	"time"

	"fx-trend-lab/internal/domain"
)

// ObservationStore provides access to observations storage.
// The store is append-only: a persisted observation is never rewritten.
type ObservationStore interface {
	// InsertBulk adds multiple observations atomically.
	// Fails entire batch on any duplicate (currency, timestamp).
	InsertBulk(ctx context.Context, obs []*domain.Observation) error

	// GetAll retrieves every observation, ordered by (currency, timestamp) ASC.
	GetAll(ctx context.Context) ([]*domain.Observation, error)

	// GetByCurrency retrieves observations for a currency, ordered by timestamp ASC.
	GetByCurrency(ctx context.Context, currency string) ([]*domain.Observation, error)
}

// FeatureRowStore provides access to the gold feature table.
// The table is fully recomputed each run and replaced as a whole.
type FeatureRowStore interface {
	// ReplaceAll swaps the stored table for rows.
	// Fails without modifying the table on a duplicate (currency, timestamp).
	ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error

	// GetAll retrieves every row, ordered by (currency, timestamp) ASC.
	GetAll(ctx context.Context) ([]*domain.FeatureRow, error)

	// GetByCurrency retrieves rows for a currency, ordered by timestamp ASC.
	GetByCurrency(ctx context.Context, currency string) ([]*domain.FeatureRow, error)

	// GetLatest retrieves the rows of the given currencies at the latest
	// timestamp among them, ordered by currency. Empty currencies means all.
	GetLatest(ctx context.Context, currencies []string) ([]*domain.FeatureRow, error)
}

// CurrencyMetadataStore provides access to currency_metadata storage.
// Reference data: rows may be updated in place.
type CurrencyMetadataStore interface {
	// UpsertBulk inserts or updates metadata keyed by code.
	UpsertBulk(ctx context.Context, items []*domain.CurrencyMetadata) error

	// GetAll retrieves all metadata, ordered by code.
	GetAll(ctx context.Context) ([]*domain.CurrencyMetadata, error)

	// GetByCode retrieves metadata by code. Returns ErrNotFound if not exists.
	GetByCode(ctx context.Context, code string) (*domain.CurrencyMetadata, error)
}

// InsightStore provides access to daily_insights storage.
type InsightStore interface {
	// Insert adds a new insight. Returns ErrDuplicateKey if the date exists.
	Insert(ctx context.Context, insight *domain.DailyInsight) error

	// GetByDate retrieves the insight of a calendar day. Returns ErrNotFound if not exists.
	GetByDate(ctx context.Context, day time.Time) (*domain.DailyInsight, error)

	// GetAll retrieves all insights, ordered by date ASC.
	GetAll(ctx context.Context) ([]*domain.DailyInsight, error)
}
