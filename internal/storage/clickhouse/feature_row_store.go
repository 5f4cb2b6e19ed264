package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/storage"
)

// FeatureRowStore implements storage.FeatureRowStore using ClickHouse.
// ReplaceAll fills gold_feature_rows_staging and exchanges it with
// gold_feature_rows, so readers never observe a half-written table.
type FeatureRowStore struct {
	conn *Conn
}

// NewFeatureRowStore creates a new FeatureRowStore.
func NewFeatureRowStore(conn *Conn) *FeatureRowStore {
	return &FeatureRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)

const featureRowColumns = `
	currency, timestamp, rate, base_currency,
	var_1d, var_7d, var_30d,
	ma_7d, ma_30d,
	volatility_7d, volatility_30d,
	diff_ma_7d, diff_ma_30d,
	consecutive_run_length,
	trend, trend_intensity, momentum,
	position_vs_ma7, position_vs_ma30, volatility_bucket,
	currency_name, country_name
`

// ReplaceAll swaps the stored table for rows.
func (s *FeatureRowStore) ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error {
	// Check for intra-batch duplicates
	seen := make(map[domain.ObservationKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.Currency == "" {
			return storage.ErrInvalidInput
		}
		k := r.Key()
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	if err := s.conn.Exec(ctx, `TRUNCATE TABLE gold_feature_rows_staging`); err != nil {
		return fmt.Errorf("truncate staging: %w", err)
	}

	if len(rows) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO gold_feature_rows_staging (`+featureRowColumns+`)`)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}

		for _, r := range rows {
			// Pass nil values directly for Nullable columns
			err = batch.Append(
				r.Currency, r.Timestamp.UTC(), r.Rate, r.BaseCurrency,
				r.Var1d, r.Var7d, r.Var30d,
				r.MA7d, r.MA30d,
				r.Volatility7d, r.Volatility30d,
				r.DiffMA7d, r.DiffMA30d,
				uint32(r.ConsecutiveRunLength),
				string(r.Trend), string(r.TrendIntensity), string(r.Momentum),
				string(r.PositionVsMA7), string(r.PositionVsMA30), string(r.VolatilityBucket),
				r.CurrencyName, r.CountryName,
			)
			if err != nil {
				batch.Abort()
				return fmt.Errorf("append to batch: %w", err)
			}
		}

		if err := batch.Send(); err != nil {
			return fmt.Errorf("send batch: %w", err)
		}
	}

	if err := s.conn.Exec(ctx, `EXCHANGE TABLES gold_feature_rows AND gold_feature_rows_staging`); err != nil {
		return fmt.Errorf("exchange tables: %w", err)
	}
	return nil
}

// GetAll retrieves every row, ordered by (currency, timestamp) ASC.
func (s *FeatureRowStore) GetAll(ctx context.Context) ([]*domain.FeatureRow, error) {
	query := `SELECT ` + featureRowColumns + `
		FROM gold_feature_rows
		ORDER BY currency ASC, timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all feature rows: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// GetByCurrency retrieves rows for a currency, ordered by timestamp ASC.
func (s *FeatureRowStore) GetByCurrency(ctx context.Context, currency string) ([]*domain.FeatureRow, error) {
	query := `SELECT ` + featureRowColumns + `
		FROM gold_feature_rows
		WHERE currency = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, currency)
	if err != nil {
		return nil, fmt.Errorf("query by currency: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// GetLatest retrieves the rows of the given currencies at the latest
// timestamp among them, ordered by currency.
func (s *FeatureRowStore) GetLatest(ctx context.Context, currencies []string) ([]*domain.FeatureRow, error) {
	var (
		query string
		args  []interface{}
	)
	if len(currencies) == 0 {
		query = `SELECT ` + featureRowColumns + `
			FROM gold_feature_rows
			WHERE timestamp = (SELECT max(timestamp) FROM gold_feature_rows)
			ORDER BY currency ASC
		`
	} else {
		query = `SELECT ` + featureRowColumns + `
			FROM gold_feature_rows
			WHERE has(?, currency)
			  AND timestamp = (SELECT max(timestamp) FROM gold_feature_rows WHERE has(?, currency))
			ORDER BY currency ASC
		`
		args = []interface{}{currencies, currencies}
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// scanFeatureRows scans multiple rows.
func scanFeatureRows(rows chRows) ([]*domain.FeatureRow, error) {
	var result []*domain.FeatureRow

	for rows.Next() {
		var (
			r                                 domain.FeatureRow
			ts                                time.Time
			runLength                         uint32
			trend, intensity, momentum        string
			posMA7, posMA30, volatilityBucket string
		)

		err := rows.Scan(
			&r.Currency, &ts, &r.Rate, &r.BaseCurrency,
			&r.Var1d, &r.Var7d, &r.Var30d,
			&r.MA7d, &r.MA30d,
			&r.Volatility7d, &r.Volatility30d,
			&r.DiffMA7d, &r.DiffMA30d,
			&runLength,
			&trend, &intensity, &momentum,
			&posMA7, &posMA30, &volatilityBucket,
			&r.CurrencyName, &r.CountryName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		r.Timestamp = ts.UTC()
		r.ConsecutiveRunLength = int(runLength)
		r.Trend = domain.Trend(trend)
		r.TrendIntensity = domain.TrendIntensity(intensity)
		r.Momentum = domain.Momentum(momentum)
		r.PositionVsMA7 = domain.Position(posMA7)
		r.PositionVsMA30 = domain.Position(posMA30)
		r.VolatilityBucket = domain.VolatilityBucket(volatilityBucket)

		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}

	return result, nil
}
