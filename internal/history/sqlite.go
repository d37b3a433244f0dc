package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/dataclean/internal/core"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS clean_runs (
	run_id       TEXT PRIMARY KEY,
	file_name    TEXT NOT NULL DEFAULT '',
	file_type    TEXT NOT NULL,
	crm_detected TEXT NOT NULL DEFAULT '',
	rows_in      INTEGER NOT NULL,
	rows_out     INTEGER NOT NULL,
	chunked      INTEGER NOT NULL DEFAULT 0,
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER NOT NULL,
	report       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS clean_runs_started_at_idx ON clean_runs (started_at DESC)`

// SQLiteStore keeps run history in a local SQLite file. Timestamps are
// stored as Unix nanoseconds so they sort numerically.
type SQLiteStore struct {
	db *sql.DB
}

func openSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	// One writer at a time keeps SQLite free of busy errors.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, r core.Report) error {
	report, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO clean_runs
		(run_id, file_name, file_type, crm_detected, rows_in, rows_out, chunked, started_at, finished_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.FileName, string(r.FileType), r.CRMDetected, r.RowsIn, r.RowsOut,
		r.Chunked, r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(), string(report))
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, opts ListOptions) ([]core.Report, error) {
	wb := newWhereBuilder(questionPlaceholder)
	wb.Add("file_type", string(opts.FileType))
	wb.Add("crm_detected", opts.CRM)
	if !opts.Since.IsZero() {
		wb.AddCondition("started_at", ">=", opts.Since.UnixNano())
	}
	whereClause, args := wb.Build()

	query := "SELECT report FROM clean_runs" + whereClause +
		" ORDER BY started_at DESC, run_id LIMIT ? OFFSET ?"
	args = append(args, opts.limit(), opts.offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	reports := make([]core.Report, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		r, err := decodeReport([]byte(raw))
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *SQLiteStore) Get(ctx context.Context, runID string) (core.Report, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT report FROM clean_runs WHERE run_id = ?", runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, ErrNotFound
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return decodeReport([]byte(raw))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
