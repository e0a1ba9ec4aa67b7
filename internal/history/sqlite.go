// Package history records import/export runs in a local SQLite database so
// past operations can be reviewed from the command line.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dbx-go/internal/dbx"
	"dbx-go/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Run is one recorded operation.
type Run struct {
	ID         string
	Operation  string
	Parameters string
	Status     string
	RowCount   int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists runs in SQLite.
type Store struct {
	db    *sql.DB
	clock dbx.Clock
	ids   dbx.IDGenerator
}

// NewStore opens (or creates) the history database at path and migrates it to
// the latest schema. path can be ":memory:" for tests.
func NewStore(path string) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}

	return &Store{
		db:    db,
		clock: dbx.RealClock{},
		ids:   dbx.UUIDGenerator{},
	}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the store relies on.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign key constraints are OFF by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// SetClock overrides the clock, for tests.
func (s *Store) SetClock(c dbx.Clock) { s.clock = c }

// SetIDGenerator overrides the id generator, for tests.
func (s *Store) SetIDGenerator(g dbx.IDGenerator) { s.ids = g }

// StartRun records the beginning of an operation and returns the new run.
func (s *Store) StartRun(ctx context.Context, operation, parameters string) (*Run, error) {
	run := &Run{
		ID:         s.ids.New(),
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusRunning,
		StartedAt:  s.clock.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, operation, parameters, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Operation, run.Parameters, run.Status, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}
	return run, nil
}

// FinishRun marks a run complete or failed and records the row count.
func (s *Store) FinishRun(ctx context.Context, run *Run, status string, rowCount int64) error {
	run.Status = status
	run.RowCount = rowCount
	run.FinishedAt = s.clock.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, row_count = ?, finished_at = ? WHERE id = ?`,
		run.Status, run.RowCount, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means no
// limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, operation, parameters, status, row_count, started_at, finished_at
	            FROM runs
	           ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Operation, &r.Parameters, &r.Status, &r.RowCount, &r.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
