package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	unit_id     TEXT NOT NULL,
	source_type TEXT NOT NULL,
	ts          DATETIME NOT NULL,
	fields      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metric_results (
	id           TEXT PRIMARY KEY,
	unit_id      TEXT NOT NULL,
	window_start DATETIME NOT NULL,
	window_end   DATETIME NOT NULL,
	result       TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (unit_id, window_start, window_end)
);

CREATE INDEX IF NOT EXISTS idx_records_source_ts ON records(source_type, ts);
CREATE INDEX IF NOT EXISTS idx_records_unit ON records(unit_id);
CREATE INDEX IF NOT EXISTS idx_results_window ON metric_results(window_start, window_end);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceRecords(ctx context.Context, source model.SourceType, records []model.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE source_type = ?`, string(source)); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear %s records", source)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, unit_id, source_type, ts, fields) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert record")
	}
	defer stmt.Close()

	for _, r := range records {
		fieldsJSON, err := json.Marshal(r.Fields)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal fields")
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), r.UnitID, string(r.SourceType), r.Timestamp.UTC(), string(fieldsJSON),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert record for %s", r.UnitID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return len(records), nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error) {
	query := `SELECT unit_id, source_type, ts, fields FROM records WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source_type = ?`
		args = append(args, string(filter.Source))
	}
	if filter.UnitID != "" {
		query += ` AND unit_id = ?`
		args = append(args, filter.UnitID)
	}
	if filter.Window != nil {
		query += ` AND ts >= ? AND ts < ?`
		args = append(args, filter.Window.Start.UTC(), filter.Window.End.UTC())
	}
	query += ` ORDER BY ts, unit_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var r model.Record
		var fieldsJSON string
		if err := rows.Scan(&r.UnitID, &r.SourceType, &r.Timestamp, &fieldsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal fields")
		}
		r.Timestamp = r.Timestamp.UTC()
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) SaveResults(ctx context.Context, results []model.MetricResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO metric_results (id, unit_id, window_start, window_end, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (unit_id, window_start, window_end)
		 DO UPDATE SET result = excluded.result, created_at = excluded.created_at`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert result")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, res := range results {
		resultJSON, err := json.Marshal(res)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal result")
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), res.UnitID,
			res.Window.Start.UTC(), res.Window.End.UTC(),
			string(resultJSON), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert result for %s", res.UnitID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) ListResults(ctx context.Context, w model.Window) ([]model.MetricResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM metric_results
		 WHERE window_start >= ? AND window_start < ?
		 ORDER BY window_start, unit_id`,
		w.Start.UTC(), w.End.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var results []model.MetricResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var res model.MetricResult
		if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}
