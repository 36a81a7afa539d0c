package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/db"
	"github.com/sells-group/cafe-sync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	table   string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. An empty table
// selects DefaultTable.
func NewPostgres(ctx context.Context, connString, table string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	if poolCfg != nil && poolCfg.MaxConns > 0 {
		maxConns = poolCfg.MaxConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresWithPool(pool, table, pool.Close), nil
}

func newPostgresWithPool(pool db.Pool, table string, closeFn func()) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{pool: pool, table: table, closeFn: closeFn}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresCafeTable = `
CREATE TABLE IF NOT EXISTS %s (
	osm_id           BIGINT PRIMARY KEY,
	name             TEXT,
	lat              FLOAT,
	lon              FLOAT,
	phone            TEXT,
	website          TEXT,
	addr_street      TEXT,
	addr_housenumber TEXT,
	addr_postcode    TEXT,
	addr_city        TEXT,
	timestamp        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const postgresSyncLog = `
CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	pipeline     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	extracted    INTEGER NOT NULL DEFAULT 0,
	inserted     INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	metadata     JSONB
);

CREATE INDEX IF NOT EXISTS idx_sync_log_pipeline_started ON sync_log(pipeline, started_at DESC);
`

// EnsureSchema creates the café table and the sync log if they are absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(postgresCafeTable, db.SanitizeTable(s.table)) + postgresSyncLog
	_, err := s.pool.Exec(ctx, ddl)
	return eris.Wrap(err, "postgres: ensure schema")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// InsertCafes writes the batch in one transaction, skipping rows whose
// osm_id already exists.
func (s *PostgresStore) InsertCafes(ctx context.Context, cafes []model.Cafe) (*LoadResult, error) {
	res, err := db.InsertIgnore(ctx, s.pool, db.InsertConfig{
		Table:        s.table,
		Columns:      model.CafeColumns,
		ConflictKeys: []string{"osm_id"},
	}, cafeRows(cafes))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert cafes into %s", s.table)
	}
	return newLoadResult(cafes, int(res.Inserted), res.Skipped), nil
}

func (s *PostgresStore) cafeSelect() string {
	return `SELECT ` + strings.Join(model.CafeColumns, ", ") + `, "timestamp" FROM ` + db.SanitizeTable(s.table)
}

func (s *PostgresStore) GetCafe(ctx context.Context, osmID int64) (*model.Cafe, error) {
	row := s.pool.QueryRow(ctx, s.cafeSelect()+` WHERE osm_id = $1`, osmID)
	c, err := scanCafe(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get cafe %d", osmID)
	}
	return c, nil
}

func (s *PostgresStore) ListCafes(ctx context.Context, filter CafeFilter) ([]model.Cafe, error) {
	rows, err := s.pool.Query(ctx,
		s.cafeSelect()+` ORDER BY osm_id LIMIT $1 OFFSET $2`,
		filter.limit(), filter.offset(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cafes")
	}
	defer rows.Close()

	var cafes []model.Cafe
	for rows.Next() {
		c, err := scanCafe(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan cafe")
		}
		cafes = append(cafes, *c)
	}
	return cafes, eris.Wrap(rows.Err(), "postgres: list cafes")
}

func (s *PostgresStore) CountCafes(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+db.SanitizeTable(s.table)).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count cafes")
	}
	return int(n), nil
}

func (s *PostgresStore) StartRun(ctx context.Context, pipeline string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_log (id, pipeline, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, pipeline, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: start run for %s", pipeline)
	}

	return &model.Run{
		ID:        id,
		Pipeline:  pipeline,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	if result == nil {
		result = &model.RunResult{}
	}
	metaJSON, err := marshalMetadata(result.Metadata)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_log
		 SET status = $1, completed_at = $2, extracted = $3, inserted = $4, skipped = $5, metadata = $6
		 WHERE id = $7`,
		string(model.RunStatusComplete), time.Now().UTC(),
		result.Extracted, result.Inserted, result.Skipped, metaJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: complete run: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_log SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
		string(model.RunStatusFailed), time.Now().UTC(), errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: fail run: run not found: %s", runID)
	}
	return nil
}

// LastSuccess returns the start time of the most recent completed run of
// pipeline, or nil if it has never succeeded.
func (s *PostgresStore) LastSuccess(ctx context.Context, pipeline string) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM sync_log
		 WHERE pipeline = $1 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		pipeline,
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: last success for %s", pipeline)
	}
	return &t, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, pipeline, status, started_at, completed_at, extracted, inserted, skipped, error, metadata FROM sync_log WHERE 1=1`
	var args []any
	argN := 1

	if filter.Pipeline != "" {
		query += fmt.Sprintf(" AND pipeline = $%d", argN)
		args = append(args, filter.Pipeline)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", argN)
	args = append(args, filter.limit())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var (
			r         model.Run
			status    string
			errStr    *string
			metaJSON  []byte
			completed *time.Time
		)
		if err := rows.Scan(&r.ID, &r.Pipeline, &status, &r.StartedAt, &completed,
			&r.Extracted, &r.Inserted, &r.Skipped, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		r.CompletedAt = completed
		if errStr != nil {
			r.Error = *errStr
		}
		r.Metadata = unmarshalMetadata(r.ID, metaJSON)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCafe(row scannable) (*model.Cafe, error) {
	var c model.Cafe
	if err := row.Scan(&c.OSMID, &c.Name, &c.Lat, &c.Lon, &c.Phone, &c.Website,
		&c.AddrStreet, &c.AddrHousenumber, &c.AddrPostcode, &c.AddrCity, &c.Timestamp); err != nil {
		return nil, err
	}
	return &c, nil
}

func marshalMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal metadata")
	}
	return b, nil
}

// unmarshalMetadata decodes a run's metadata column. A corrupt value is
// logged and dropped so one bad row does not hide the rest of the run log.
func unmarshalMetadata(runID string, data []byte) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		zap.L().Warn("store: corrupt run metadata",
			zap.String("run_id", runID),
			zap.Error(err),
		)
		return nil
	}
	return meta
}
