package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cafe-sync/internal/db"
	"github.com/sells-group/cafe-sync/internal/model"
)

// sqliteTimeLayout is fixed-width so stored times sort lexically.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// An empty table selects DefaultTable.
func NewSQLite(dsn, table string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if table == "" {
		table = DefaultTable
	}
	return &SQLiteStore{db: conn, table: table}, nil
}

const sqliteCafeTable = `
CREATE TABLE IF NOT EXISTS %s (
	osm_id           INTEGER PRIMARY KEY,
	name             TEXT,
	lat              REAL,
	lon              REAL,
	phone            TEXT,
	website          TEXT,
	addr_street      TEXT,
	addr_housenumber TEXT,
	addr_postcode    TEXT,
	addr_city        TEXT,
	timestamp        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const sqliteSyncLog = `
CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	pipeline     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	extracted    INTEGER NOT NULL DEFAULT 0,
	inserted     INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	metadata     TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_log_pipeline_started ON sync_log(pipeline, started_at DESC);
`

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(sqliteCafeTable, db.SanitizeTable(s.table)) + sqliteSyncLog
	_, err := s.db.ExecContext(ctx, ddl)
	return eris.Wrap(err, "sqlite: ensure schema")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertCafes(ctx context.Context, cafes []model.Cafe) (*LoadResult, error) {
	if len(cafes) == 0 {
		return &LoadResult{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(model.CafeColumns)), ", ")
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (osm_id) DO NOTHING",
		db.SanitizeTable(s.table), db.QuoteAndJoin(model.CafeColumns), placeholders,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert cafes: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		inserted int
		skipped  []int
	)
	for i, c := range cafes {
		res, err := tx.ExecContext(ctx, insertSQL, c.Values()...)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert cafes: row %d into %s", i, s.table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert cafes: rows affected")
		}
		if n == 0 {
			skipped = append(skipped, i)
			continue
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert cafes: commit tx")
	}
	return newLoadResult(cafes, inserted, skipped), nil
}

func (s *SQLiteStore) cafeSelect() string {
	return `SELECT ` + strings.Join(model.CafeColumns, ", ") + `, "timestamp" FROM ` + db.SanitizeTable(s.table)
}

func (s *SQLiteStore) GetCafe(ctx context.Context, osmID int64) (*model.Cafe, error) {
	row := s.db.QueryRowContext(ctx, s.cafeSelect()+` WHERE osm_id = ?`, osmID)
	c, err := scanSQLiteCafe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get cafe %d", osmID)
	}
	return c, nil
}

func (s *SQLiteStore) ListCafes(ctx context.Context, filter CafeFilter) ([]model.Cafe, error) {
	rows, err := s.db.QueryContext(ctx,
		s.cafeSelect()+` ORDER BY osm_id LIMIT ? OFFSET ?`,
		filter.limit(), filter.offset(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cafes")
	}
	defer rows.Close() //nolint:errcheck

	var cafes []model.Cafe
	for rows.Next() {
		c, err := scanSQLiteCafe(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cafe")
		}
		cafes = append(cafes, *c)
	}
	return cafes, eris.Wrap(rows.Err(), "sqlite: list cafes")
}

func (s *SQLiteStore) CountCafes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+db.SanitizeTable(s.table)).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count cafes")
	}
	return n, nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, pipeline string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, pipeline, status, started_at) VALUES (?, ?, ?, ?)`,
		id, pipeline, string(model.RunStatusRunning), now.Format(sqliteTimeLayout),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: start run for %s", pipeline)
	}

	return &model.Run{
		ID:        id,
		Pipeline:  pipeline,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	if result == nil {
		result = &model.RunResult{}
	}
	metaJSON, err := marshalMetadata(result.Metadata)
	if err != nil {
		return err
	}
	var meta any
	if metaJSON != nil {
		meta = string(metaJSON)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_log
		 SET status = ?, completed_at = ?, extracted = ?, inserted = ?, skipped = ?, metadata = ?
		 WHERE id = ?`,
		string(model.RunStatusComplete), time.Now().UTC().Format(sqliteTimeLayout),
		result.Extracted, result.Inserted, result.Skipped, meta, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(model.RunStatusFailed), time.Now().UTC().Format(sqliteTimeLayout), errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) LastSuccess(ctx context.Context, pipeline string) (*time.Time, error) {
	var started string
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at FROM sync_log
		 WHERE pipeline = ? AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		pipeline,
	).Scan(&started)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: last success for %s", pipeline)
	}
	t, err := time.Parse(sqliteTimeLayout, started)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse started_at %q", started)
	}
	return &t, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, pipeline, status, started_at, completed_at, extracted, inserted, skipped, error, metadata FROM sync_log WHERE 1=1`
	var args []any

	if filter.Pipeline != "" {
		query += " AND pipeline = ?"
		args = append(args, filter.Pipeline)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var (
			r         model.Run
			status    string
			started   string
			completed sql.NullString
			errStr    sql.NullString
			metaJSON  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Pipeline, &status, &started, &completed,
			&r.Extracted, &r.Inserted, &r.Skipped, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		if r.StartedAt, err = time.Parse(sqliteTimeLayout, started); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse started_at %q", started)
		}
		if completed.Valid {
			t, err := time.Parse(sqliteTimeLayout, completed.String)
			if err != nil {
				return nil, eris.Wrapf(err, "sqlite: parse completed_at %q", completed.String)
			}
			r.CompletedAt = &t
		}
		r.Error = errStr.String
		if metaJSON.Valid {
			r.Metadata = unmarshalMetadata(r.ID, []byte(metaJSON.String))
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanSQLiteCafe(row scannable) (*model.Cafe, error) {
	var (
		c  model.Cafe
		ts any
	)
	if err := row.Scan(&c.OSMID, &c.Name, &c.Lat, &c.Lon, &c.Phone, &c.Website,
		&c.AddrStreet, &c.AddrHousenumber, &c.AddrPostcode, &c.AddrCity, &ts); err != nil {
		return nil, err
	}
	c.Timestamp = sqliteTimestamp(ts)
	return &c, nil
}

// sqliteTimestamp converts a CURRENT_TIMESTAMP column value. The driver
// returns time.Time for TIMESTAMP columns it can parse and text otherwise.
func sqliteTimestamp(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case string:
		for _, layout := range []string{time.DateTime, sqliteTimeLayout, time.RFC3339Nano} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return &parsed
			}
		}
	case []byte:
		return sqliteTimestamp(string(t))
	}
	return nil
}
