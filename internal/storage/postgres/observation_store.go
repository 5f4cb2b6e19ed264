package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
type ObservationStore struct {
	db DB
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(db DB) *ObservationStore {
	return &ObservationStore{db: db}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

const insertObservationQuery = `
	INSERT INTO observations (currency, observed_at, rate, base_currency)
	VALUES ($1, $2, $3, $4)
`

// InsertBulk adds multiple observations atomically. Fails entire batch on any duplicate.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if o == nil || o.Currency == "" || o.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(insertObservationQuery, o.Currency, o.Timestamp.UTC(), o.Rate, o.BaseCurrency)
	}

	br := tx.SendBatch(ctx, batch)
	for range obs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert observation in bulk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves every observation, ordered by (currency, timestamp) ASC.
func (s *ObservationStore) GetAll(ctx context.Context) ([]*domain.Observation, error) {
	query := `
		SELECT currency, observed_at, rate, base_currency
		FROM observations
		ORDER BY currency ASC, observed_at ASC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByCurrency retrieves observations for a currency, ordered by timestamp ASC.
func (s *ObservationStore) GetByCurrency(ctx context.Context, currency string) ([]*domain.Observation, error) {
	query := `
		SELECT currency, observed_at, rate, base_currency
		FROM observations
		WHERE currency = $1
		ORDER BY observed_at ASC
	`

	rows, err := s.db.Query(ctx, query, currency)
	if err != nil {
		return nil, fmt.Errorf("get observations by currency: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// scanObservations scans multiple rows into a slice of Observation.
func scanObservations(rows pgx.Rows) ([]*domain.Observation, error) {
	var result []*domain.Observation

	for rows.Next() {
		var o domain.Observation

		if err := rows.Scan(&o.Currency, &o.Timestamp, &o.Rate, &o.BaseCurrency); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		o.Timestamp = o.Timestamp.UTC()

		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return result, nil
}
