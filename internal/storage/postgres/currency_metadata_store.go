package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// CurrencyMetadataStore implements storage.CurrencyMetadataStore using PostgreSQL.
type CurrencyMetadataStore struct {
	db DB
}

// NewCurrencyMetadataStore creates a new CurrencyMetadataStore.
func NewCurrencyMetadataStore(db DB) *CurrencyMetadataStore {
	return &CurrencyMetadataStore{db: db}
}

// Compile-time interface check.
var _ storage.CurrencyMetadataStore = (*CurrencyMetadataStore)(nil)

// UpsertBulk inserts or updates metadata keyed by code.
func (s *CurrencyMetadataStore) UpsertBulk(ctx context.Context, items []*domain.CurrencyMetadata) error {
	if len(items) == 0 {
		return nil
	}
	for _, m := range items {
		if m == nil || m.Code == "" {
			return storage.ErrInvalidInput
		}
	}

	query := `
		INSERT INTO currency_metadata (code, name, country)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name, country = EXCLUDED.country, updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, m := range items {
		batch.Queue(query, m.Code, m.Name, m.Country)
	}

	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert currency metadata: %w", err)
	}
	return nil
}

// GetAll retrieves all metadata, ordered by code.
func (s *CurrencyMetadataStore) GetAll(ctx context.Context) ([]*domain.CurrencyMetadata, error) {
	query := `
		SELECT code, name, country
		FROM currency_metadata
		ORDER BY code ASC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all currency metadata: %w", err)
	}
	defer rows.Close()

	var result []*domain.CurrencyMetadata
	for rows.Next() {
		m, err := scanCurrencyMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan currency metadata row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate currency metadata rows: %w", err)
	}
	return result, nil
}

// GetByCode retrieves metadata by code. Returns ErrNotFound if not exists.
func (s *CurrencyMetadataStore) GetByCode(ctx context.Context, code string) (*domain.CurrencyMetadata, error) {
	query := `
		SELECT code, name, country
		FROM currency_metadata
		WHERE code = $1
	`

	m, err := scanCurrencyMetadata(s.db.QueryRow(ctx, query, code))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get currency metadata by code: %w", err)
	}
	return m, nil
}

// scanCurrencyMetadata scans a single row into CurrencyMetadata.
func scanCurrencyMetadata(row pgx.Row) (*domain.CurrencyMetadata, error) {
	var m domain.CurrencyMetadata
	if err := row.Scan(&m.Code, &m.Name, &m.Country); err != nil {
		return nil, err
	}
	return &m, nil
}
