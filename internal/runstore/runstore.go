// Package runstore archives finished render runs in a local sqlite
// database, so past visualizations can be listed and traced back to
// their output files.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // database/sql driver
)

// Run is one archived render: which model and objective were optimized,
// for how long, and where the result went.
type Run struct {
	ID         string
	Model      string
	Objective  string
	Steps      int
	FinalLoss  float64
	OutputPath string
	StartedAt  time.Time
	Duration   time.Duration
}

// Store archives runs in a sqlite database.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// New creates a store backed by the sqlite database at path. The
// database is not touched until Init.
func New(path string) *Store {
	return &Store{path: path}
}

// Init opens the database and creates the runs table if needed.
// Calling Init on an initialized store is a no-op.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("runstore: database path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTable(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Record archives a run. A blank ID is replaced with a fresh UUID, and
// recording an existing ID overwrites that run. The stored ID is
// returned.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, model, objective, steps, final_loss, output_path, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			objective = excluded.objective,
			steps = excluded.steps,
			final_loss = excluded.final_loss,
			output_path = excluded.output_path,
			started_at = excluded.started_at,
			duration_ms = excluded.duration_ms
	`, run.ID, run.Model, run.Objective, run.Steps, run.FinalLoss, run.OutputPath,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

// List returns all archived runs, most recent first.
func (s *Store) List(ctx context.Context) ([]Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, model, objective, steps, final_loss, output_path, started_at, duration_ms
		FROM runs
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&run.ID, &run.Model, &run.Objective, &run.Steps,
			&run.FinalLoss, &run.OutputPath, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at for run %s: %w", run.ID, err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database. Safe to call on an uninitialized store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("runstore: store is not initialized")
	}
	return s.db, nil
}

func createTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			objective TEXT NOT NULL,
			steps INTEGER NOT NULL,
			final_loss REAL NOT NULL,
			output_path TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		);
	`)
	return err
}
