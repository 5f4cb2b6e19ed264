package migrations

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fx-trend-lab/internal/storage"
)

// PostgresDB is the part of the pgx pool API the runner needs.
// *postgres.Pool and pgxmock pools satisfy it.
type PostgresDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// tableKey is a primary key a store relies on for dedup or upsert.
type tableKey struct {
	Table   string
	Columns []string
}

// postgresKeys back ErrDuplicateKey on observations and insights and the
// ON CONFLICT (code) upsert on currency metadata.
var postgresKeys = []tableKey{
	{Table: "observations", Columns: []string{"currency", "observed_at"}},
	{Table: "currency_metadata", Columns: []string{"code"}},
	{Table: "daily_insights", Columns: []string{"insight_date"}},
}

const (
	createVersionTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT        PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	selectVersionsSQL = `SELECT version FROM schema_migrations`

	insertVersionSQL = `INSERT INTO schema_migrations (version) VALUES ($1)`

	primaryKeySQL = `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
			AND kcu.table_name = tc.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = current_schema()
			AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`
)

// RunPostgresMigrations applies the embedded files not yet listed in
// schema_migrations, each in its own transaction, then checks the primary
// keys of the observation, metadata and insight tables.
// Returns the names of the files applied by this call.
func RunPostgresMigrations(ctx context.Context, db PostgresDB) ([]string, error) {
	files, err := loadFiles(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(ctx, createVersionTableSQL); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, f := range files {
		if done[f.Name] {
			continue
		}
		if err := applyPostgresFile(ctx, db, f); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", f.Name, err)
		}
		applied = append(applied, f.Name)
	}

	for _, key := range postgresKeys {
		if err := checkPrimaryKey(ctx, db, key); err != nil {
			return applied, err
		}
	}
	return applied, nil
}

func appliedVersions(ctx context.Context, db PostgresDB) (map[string]bool, error) {
	rows, err := db.Query(ctx, selectVersionsSQL)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		done[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema_migrations: %w", err)
	}
	return done, nil
}

// applyPostgresFile runs one file and records its version atomically.
func applyPostgresFile(ctx context.Context, db PostgresDB, f migrationFile) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(ctx, f.SQL); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if _, err := tx.Exec(ctx, insertVersionSQL, f.Name); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit(ctx)
}

func checkPrimaryKey(ctx context.Context, db PostgresDB, key tableKey) error {
	rows, err := db.Query(ctx, primaryKeySQL, key.Table)
	if err != nil {
		return fmt.Errorf("read primary key of %s: %w", key.Table, err)
	}
	defer rows.Close()

	var got []string
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return fmt.Errorf("scan primary key of %s: %w", key.Table, err)
		}
		got = append(got, column)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate primary key of %s: %w", key.Table, err)
	}

	if !slices.Equal(got, key.Columns) {
		return fmt.Errorf("%w: %s primary key is (%s), stores need (%s)",
			storage.ErrSchemaDrift, key.Table, strings.Join(got, ", "), strings.Join(key.Columns, ", "))
	}
	return nil
}
