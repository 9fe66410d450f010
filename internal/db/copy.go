// Package db bulk-loads indicator tables into PostgreSQL.
package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/turnout-prep/internal/indicator"
)

// Pool is the subset of *pgxpool.Pool the loader uses.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "db: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "db: ping")
	}
	return pool, nil
}

// CopyFrom bulk-inserts rows into schema.table using the COPY protocol.
// An empty schema targets the search path.
func CopyFrom(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, identifier(schema, table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", qualified(schema, table))
	}
	return n, nil
}

// TableRows converts t into COPY column names and row tuples. Codes stay
// text and missing cells become NULL.
func TableRows(t *indicator.Table) ([]string, [][]any) {
	columns := make([]string, 0, len(t.Columns)+3)
	columns = append(columns, indicator.ColCode, indicator.ColCounty, indicator.ColYear)
	columns = append(columns, t.Columns...)

	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		tuple := make([]any, 0, len(columns))
		tuple = append(tuple, r.Code, r.County, r.Year)
		for _, v := range r.Values {
			if indicator.IsMissing(v) {
				tuple = append(tuple, nil)
			} else {
				tuple = append(tuple, v)
			}
		}
		rows[i] = tuple
	}
	return columns, rows
}

// EnsureTable creates schema.table for t's columns when it does not exist.
// The table is keyed on (terc_code, year) so BulkUpsert can target it.
func EnsureTable(ctx context.Context, pool Pool, schema, table string, t *indicator.Table) error {
	defs := []string{
		pgx.Identifier{indicator.ColCode}.Sanitize() + " text NOT NULL",
		pgx.Identifier{indicator.ColCounty}.Sanitize() + " text",
		pgx.Identifier{indicator.ColYear}.Sanitize() + " integer NOT NULL",
	}
	for _, c := range t.Columns {
		defs = append(defs, pgx.Identifier{c}.Sanitize()+" double precision")
	}
	defs = append(defs, "PRIMARY KEY ("+quoteAndJoin(IndicatorKeys)+")")

	ddl := "CREATE TABLE IF NOT EXISTS " + identifier(schema, table).Sanitize() +
		" (" + strings.Join(defs, ", ") + ")"
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "db: create table %s", qualified(schema, table))
	}
	return nil
}

// LoadTable writes t to schema.table, creating the table if needed. With
// upsert, rows whose (terc_code, year) already exist are updated in place;
// otherwise rows are appended with COPY.
func LoadTable(ctx context.Context, pool Pool, schema, table string, t *indicator.Table, upsert bool) (int64, error) {
	if err := EnsureTable(ctx, pool, schema, table, t); err != nil {
		return 0, err
	}

	columns, rows := TableRows(t)
	if !upsert {
		return CopyFrom(ctx, pool, schema, table, columns, rows)
	}
	return BulkUpsert(ctx, pool, UpsertConfig{
		Table:        qualified(schema, table),
		Columns:      columns,
		ConflictKeys: IndicatorKeys,
	}, rows)
}

func identifier(schema, table string) pgx.Identifier {
	if schema == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, table}
}

func qualified(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}
