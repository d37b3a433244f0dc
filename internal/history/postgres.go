package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dataclean/internal/core"
)

const pgSchema = `CREATE TABLE IF NOT EXISTS clean_runs (
	run_id       TEXT PRIMARY KEY,
	file_name    TEXT NOT NULL DEFAULT '',
	file_type    TEXT NOT NULL,
	crm_detected TEXT NOT NULL DEFAULT '',
	rows_in      INTEGER NOT NULL,
	rows_out     INTEGER NOT NULL,
	chunked      BOOLEAN NOT NULL DEFAULT FALSE,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	report       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS clean_runs_started_at_idx ON clean_runs (started_at DESC)`

// PostgresStore keeps run history in a Postgres table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, dsn string, opts Options) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse history dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect history database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, r core.Report) error {
	report, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO clean_runs
		(run_id, file_name, file_type, crm_detected, rows_in, rows_out, chunked, started_at, finished_at, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			file_name = EXCLUDED.file_name, file_type = EXCLUDED.file_type,
			crm_detected = EXCLUDED.crm_detected, rows_in = EXCLUDED.rows_in,
			rows_out = EXCLUDED.rows_out, chunked = EXCLUDED.chunked,
			started_at = EXCLUDED.started_at, finished_at = EXCLUDED.finished_at,
			report = EXCLUDED.report`,
		r.RunID, r.FileName, string(r.FileType), r.CRMDetected, r.RowsIn, r.RowsOut,
		r.Chunked, r.StartedAt, r.FinishedAt, report)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, opts ListOptions) ([]core.Report, error) {
	wb := newWhereBuilder(dollarPlaceholder)
	wb.Add("file_type", string(opts.FileType))
	wb.Add("crm_detected", opts.CRM)
	if !opts.Since.IsZero() {
		wb.AddCondition("started_at", ">=", opts.Since)
	}
	whereClause, args := wb.Build()

	query := "SELECT report FROM clean_runs" + whereClause +
		" ORDER BY started_at DESC, run_id LIMIT " + wb.Placeholder() + " OFFSET " + wb.Placeholder()
	args = append(args, opts.limit(), opts.offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	reports := make([]core.Report, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		r, err := decodeReport(raw)
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

func (s *PostgresStore) Get(ctx context.Context, runID string) (core.Report, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, "SELECT report FROM clean_runs WHERE run_id = $1", runID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Report{}, ErrNotFound
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return decodeReport(raw)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func decodeReport(raw []byte) (core.Report, error) {
	var r core.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return core.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
