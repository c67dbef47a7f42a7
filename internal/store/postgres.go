package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mfg-analytics/oee-cli/internal/db"
	"github.com/mfg-analytics/oee-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// hot paths of the batch workflow.
var preparedStatements = map[string]string{
	"clear_records": `DELETE FROM records WHERE source_type = $1`,
	"list_results":  `SELECT result FROM metric_results WHERE window_start >= $1 AND window_start < $2 ORDER BY window_start, unit_id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	unit_id     TEXT NOT NULL,
	source_type TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	fields      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS metric_results (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	unit_id      TEXT NOT NULL,
	window_start TIMESTAMPTZ NOT NULL,
	window_end   TIMESTAMPTZ NOT NULL,
	result       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (unit_id, window_start, window_end)
);

CREATE INDEX IF NOT EXISTS idx_records_source_ts ON records(source_type, ts);
CREATE INDEX IF NOT EXISTS idx_records_unit ON records(unit_id);
CREATE INDEX IF NOT EXISTS idx_results_window ON metric_results(window_start, window_end);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ReplaceRecords(ctx context.Context, source model.SourceType, records []model.Record) (int, error) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM records WHERE source_type = $1`, string(source)); err != nil {
		return 0, eris.Wrapf(err, "postgres: clear %s records", source)
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		fieldsJSON, err := json.Marshal(r.Fields)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal fields")
		}
		rows = append(rows, []any{
			uuid.New().String(), r.UnitID, string(r.SourceType), r.Timestamp.UTC(), fieldsJSON,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "records",
		[]string{"id", "unit_id", "source_type", "ts", "fields"}, rows)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error) {
	query := `SELECT unit_id, source_type, ts, fields FROM records WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Source != "" {
		query += fmt.Sprintf(` AND source_type = $%d`, argIdx)
		args = append(args, string(filter.Source))
		argIdx++
	}
	if filter.UnitID != "" {
		query += fmt.Sprintf(` AND unit_id = $%d`, argIdx)
		args = append(args, filter.UnitID)
		argIdx++
	}
	if filter.Window != nil {
		query += fmt.Sprintf(` AND ts >= $%d AND ts < $%d`, argIdx, argIdx+1)
		args = append(args, filter.Window.Start.UTC(), filter.Window.End.UTC())
		argIdx += 2
	}
	query += ` ORDER BY ts, unit_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var r model.Record
		var fieldsJSON []byte
		if err := rows.Scan(&r.UnitID, &r.SourceType, &r.Timestamp, &fieldsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		if err := json.Unmarshal(fieldsJSON, &r.Fields); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal fields")
		}
		r.Timestamp = r.Timestamp.UTC()
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) SaveResults(ctx context.Context, results []model.MetricResult) error {
	if len(results) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(results))
	for _, res := range results {
		resultJSON, err := json.Marshal(res)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal result")
		}
		rows = append(rows, []any{
			uuid.New().String(), res.UnitID,
			res.Window.Start.UTC(), res.Window.End.UTC(),
			resultJSON, now,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "metric_results",
		Columns:      []string{"id", "unit_id", "window_start", "window_end", "result", "created_at"},
		ConflictKeys: []string{"unit_id", "window_start", "window_end"},
		UpdateCols:   []string{"result", "created_at"},
	}, rows)
	return err
}

func (s *PostgresStore) ListResults(ctx context.Context, w model.Window) ([]model.MetricResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT result FROM metric_results
		 WHERE window_start >= $1 AND window_start < $2
		 ORDER BY window_start, unit_id`,
		w.Start.UTC(), w.End.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var results []model.MetricResult
	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var res model.MetricResult
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list results iterate")
}
