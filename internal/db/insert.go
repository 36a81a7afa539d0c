package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// InsertConfig defines the parameters for an insert-or-skip batch.
type InsertConfig struct {
	Table        string   // target table (e.g., "berlin_cafes" or "osm.cafes")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
}

// InsertResult reports what an insert-or-skip batch did.
type InsertResult struct {
	Inserted int64
	Skipped  []int // indices into the input rows that hit the conflict target
}

// InsertIgnore inserts rows one at a time, in order, inside a single
// transaction using INSERT ... ON CONFLICT (keys) DO NOTHING. Existing rows
// always win; a key repeated within rows keeps its first occurrence. Any
// error rolls back the whole batch.
func InsertIgnore(ctx context.Context, pool Pool, cfg InsertConfig, rows [][]any) (*InsertResult, error) {
	if len(rows) == 0 {
		return &InsertResult{}, nil
	}

	if len(cfg.Columns) == 0 {
		return nil, eris.New("db: insert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return nil, eris.New("db: insert: no conflict keys specified")
	}

	insertSQL := InsertIgnoreSQL(cfg)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "db: insert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	res := &InsertResult{}
	for i, row := range rows {
		if len(row) != len(cfg.Columns) {
			return nil, eris.Errorf("db: insert: row %d has %d values, want %d", i, len(row), len(cfg.Columns))
		}
		tag, err := tx.Exec(ctx, insertSQL, row...)
		if err != nil {
			return nil, eris.Wrapf(err, "db: insert: row %d into %s", i, cfg.Table)
		}
		if tag.RowsAffected() == 0 {
			res.Skipped = append(res.Skipped, i)
			continue
		}
		res.Inserted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "db: insert: commit tx")
	}

	return res, nil
}

// InsertIgnoreSQL renders the parameterised INSERT ... ON CONFLICT DO NOTHING
// statement for cfg.
func InsertIgnoreSQL(cfg InsertConfig) string {
	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		SanitizeTable(cfg.Table),
		QuoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		QuoteAndJoin(cfg.ConflictKeys),
	)
}

// SanitizeTable handles schema-qualified table names like "osm.cafes".
func SanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// QuoteAndJoin quotes each column name and joins with commas.
func QuoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
