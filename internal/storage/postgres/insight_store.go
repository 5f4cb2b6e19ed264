package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// InsightStore implements storage.InsightStore using PostgreSQL.
type InsightStore struct {
	db DB
}

// NewInsightStore creates a new InsightStore.
func NewInsightStore(db DB) *InsightStore {
	return &InsightStore{db: db}
}

// Compile-time interface check.
var _ storage.InsightStore = (*InsightStore)(nil)

// Insert adds a new insight. Returns ErrDuplicateKey if the date exists.
func (s *InsightStore) Insert(ctx context.Context, insight *domain.DailyInsight) error {
	if insight == nil || insight.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO daily_insights (insight_date, text, prompt_version, currencies, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()))
	`

	currencies := insight.Currencies
	if currencies == nil {
		currencies = []string{}
	}

	// Zero CreatedAt falls back to the column default.
	var createdAt *time.Time
	if !insight.CreatedAt.IsZero() {
		ts := insight.CreatedAt.UTC()
		createdAt = &ts
	}

	_, err := s.db.Exec(ctx, query,
		domain.DayOf(insight.Date),
		insight.Text,
		insight.PromptVersion,
		currencies,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert daily insight: %w", err)
	}
	return nil
}

// GetByDate retrieves the insight of a calendar day. Returns ErrNotFound if not exists.
func (s *InsightStore) GetByDate(ctx context.Context, day time.Time) (*domain.DailyInsight, error) {
	query := `
		SELECT insight_date, text, prompt_version, currencies, created_at
		FROM daily_insights
		WHERE insight_date = $1
	`

	insight, err := scanInsight(s.db.QueryRow(ctx, query, domain.DayOf(day)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get daily insight by date: %w", err)
	}
	return insight, nil
}

// GetAll retrieves all insights, ordered by date ASC.
func (s *InsightStore) GetAll(ctx context.Context) ([]*domain.DailyInsight, error) {
	query := `
		SELECT insight_date, text, prompt_version, currencies, created_at
		FROM daily_insights
		ORDER BY insight_date ASC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all daily insights: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyInsight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily insight row: %w", err)
		}
		result = append(result, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily insight rows: %w", err)
	}
	return result, nil
}

// scanInsight scans a single row into DailyInsight.
func scanInsight(row pgx.Row) (*domain.DailyInsight, error) {
	var d domain.DailyInsight
	if err := row.Scan(&d.Date, &d.Text, &d.PromptVersion, &d.Currencies, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Date = domain.DayOf(d.Date)
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}
