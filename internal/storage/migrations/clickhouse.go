package migrations

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fx-trend-lab/internal/storage"
	chstore "fx-trend-lab/internal/storage/clickhouse"
)

// The gold table and its staging twin are swapped by EXCHANGE TABLES on
// every publication, so their column lists must match.
const (
	goldTable        = "gold_feature_rows"
	goldStagingTable = "gold_feature_rows_staging"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// chColumn is one row of system.columns.
type chColumn struct {
	Name string
	Type string
}

// RunClickhouseMigrations creates the database named in dsn, applies the
// embedded files and checks that the gold tables can be exchanged.
// Returns a connection to the migrated database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := chstore.DatabaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if !identPattern.MatchString(dbName) {
		return nil, fmt.Errorf("clickhouse database name %q is not a plain identifier", dbName)
	}

	files, err := loadFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	plan := make(map[string][]string, len(files))
	for _, f := range files {
		stmts, err := splitStatements(f.SQL)
		if err != nil {
			return nil, fmt.Errorf("parse migration %s: %w", f.Name, err)
		}
		plan[f.Name] = stmts
	}

	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	for _, f := range files {
		for _, stmt := range plan[f.Name] {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", f.Name, err)
			}
		}
	}

	if err := checkExchangePair(ctx, conn, dbName); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS `"+dbName+"`"); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func checkExchangePair(ctx context.Context, conn *chstore.Conn, dbName string) error {
	rows, err := conn.Query(ctx, `
		SELECT table, name, type
		FROM system.columns
		WHERE database = ? AND table IN (?, ?)
		ORDER BY table, position`,
		dbName, goldTable, goldStagingTable)
	if err != nil {
		return fmt.Errorf("read gold table columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string][]chColumn, 2)
	for rows.Next() {
		var table string
		var c chColumn
		if err := rows.Scan(&table, &c.Name, &c.Type); err != nil {
			return fmt.Errorf("scan gold table column: %w", err)
		}
		columns[table] = append(columns[table], c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate gold table columns: %w", err)
	}

	return compareExchangeColumns(columns[goldTable], columns[goldStagingTable])
}

// compareExchangeColumns requires both tables to exist with the same
// columns in the same order.
func compareExchangeColumns(live, staging []chColumn) error {
	switch {
	case len(live) == 0:
		return fmt.Errorf("%w: table %s missing", storage.ErrSchemaDrift, goldTable)
	case len(staging) == 0:
		return fmt.Errorf("%w: table %s missing", storage.ErrSchemaDrift, goldStagingTable)
	}

	var diffs []string
	for i := 0; i < max(len(live), len(staging)); i++ {
		switch {
		case i >= len(staging):
			diffs = append(diffs, fmt.Sprintf("%s only in %s", live[i].Name, goldTable))
		case i >= len(live):
			diffs = append(diffs, fmt.Sprintf("%s only in %s", staging[i].Name, goldStagingTable))
		case live[i] != staging[i]:
			diffs = append(diffs, fmt.Sprintf("column %d is %s %s vs %s %s",
				i+1, live[i].Name, live[i].Type, staging[i].Name, staging[i].Type))
		}
	}
	if len(diffs) > 0 {
		return fmt.Errorf("%w: %s and %s differ: %s",
			storage.ErrSchemaDrift, goldTable, goldStagingTable, strings.Join(diffs, "; "))
	}
	return nil
}

var errUnterminatedString = errors.New("unterminated string literal")

// splitStatements breaks a ClickHouse migration into single statements,
// since the native driver runs one statement per Exec. It drops -- comments
// and splits on semicolons outside single-quoted literals.
func splitStatements(sql string) ([]string, error) {
	var (
		stmts   []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case inQuote:
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(sql) {
				i++
				cur.WriteByte(sql[i])
			} else if c == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					i++
					cur.WriteByte('\'')
				} else {
					inQuote = false
				}
			}
		case c == '\'':
			inQuote = true
			cur.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, errUnterminatedString
	}
	flush()
	return stmts, nil
}
