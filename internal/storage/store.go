// Package storage keeps a history of analysis runs in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

type Store struct {
	db *sql.DB
}

// RunRecord is one persisted analysis run.
type RunRecord struct {
	ID         string
	Symbol     string
	Days       int
	Status     string
	StatsJSON  string
	Report     string
	ReportPath string
	Error      string
}

type RunWithMeta struct {
	RunRecord
	RowID     int64
	CreatedAt string
	UpdatedAt string
}

// Open opens (creating when needed) the run database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun inserts run or overwrites the stored copy with the same ID.
func (s *Store) SaveRun(ctx context.Context, run RunRecord) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(run.Symbol) == "" {
		return fmt.Errorf("run symbol is required")
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO analysis_runs (id, symbol, days, status, stats_json, report, report_path, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    symbol=excluded.symbol,
    days=excluded.days,
    status=excluded.status,
    stats_json=excluded.stats_json,
    report=excluded.report,
    report_path=excluded.report_path,
    error=excluded.error,
    updated_at=CURRENT_TIMESTAMP
`, run.ID, run.Symbol, run.Days, run.Status, run.StatsJSON, run.Report, run.ReportPath, run.Error)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// ListRuns returns the newest runs first, optionally filtered by symbol.
func (s *Store) ListRuns(ctx context.Context, symbol string, limit int) ([]RunWithMeta, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	rows, err := s.db.QueryContext(ctx, `
SELECT rowid, id, symbol, days, status, stats_json, report, report_path, error, created_at, updated_at
FROM analysis_runs
WHERE (? = '' OR symbol = ?)
ORDER BY rowid DESC
LIMIT ?
`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunWithMeta
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with id, or nil when there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*RunWithMeta, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT rowid, id, symbol, days, status, stats_json, report, report_path, error, created_at, updated_at
FROM analysis_runs
WHERE id = ?
LIMIT 1
`, id)

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunWithMeta, error) {
	var rec RunWithMeta
	err := row.Scan(&rec.RowID, &rec.ID, &rec.Symbol, &rec.Days, &rec.Status, &rec.StatsJSON,
		&rec.Report, &rec.ReportPath, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &rec, nil
}
