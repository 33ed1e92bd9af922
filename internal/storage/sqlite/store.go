// Package sqlite provides a SQLite-backed RunStore.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mwrenn/research-pipeline/internal/domain"
	"github.com/mwrenn/research-pipeline/internal/storage"
)

// Store is a SQLite implementation of storage.RunStore.
type Store struct {
	db *sql.DB
}

var _ storage.RunStore = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and initializes the
// schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			created_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			stage TEXT NOT NULL,
			capability TEXT NOT NULL,
			status TEXT NOT NULL,
			failure TEXT,
			payload TEXT,
			error TEXT,
			duration_ns INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL,
			PRIMARY KEY (run_id, idx),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, run *domain.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, topic, query, status, error, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Topic, run.Query, string(run.Status()), run.Error,
		run.CreatedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear steps: %w", err)
	}

	for i, step := range run.Steps {
		payload, err := domain.MarshalPayload(step.Payload)
		if err != nil {
			return fmt.Errorf("marshal step payload: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO steps (run_id, idx, stage, capability, status, failure, payload, error, duration_ns, started_at, ended_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, step.Stage, step.Capability, string(step.Status), string(step.Failure),
			string(payload), step.Error, step.Duration.Nanoseconds(),
			step.StartedAt.UTC(), step.EndedAt.UTC())
		if err != nil {
			return fmt.Errorf("save step %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	run := &domain.Run{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, topic, query, error, created_at, finished_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Topic, &run.Query, &run.Error, &run.CreatedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	steps, err := s.loadSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Steps = steps
	return run, nil
}

func (s *Store) loadSteps(ctx context.Context, runID string) ([]domain.StepResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, capability, status, failure, payload, error, duration_ns, started_at, ended_at
		 FROM steps WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.StepResult
	for rows.Next() {
		var step domain.StepResult
		var status, failure, payload string
		var durationNS int64
		if err := rows.Scan(&step.Stage, &step.Capability, &status, &failure, &payload,
			&step.Error, &durationNS, &step.StartedAt, &step.EndedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Status = domain.StepStatus(status)
		step.Failure = domain.FailureKind(failure)
		step.Duration = time.Duration(durationNS)
		p, err := domain.UnmarshalPayload([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("unmarshal step payload: %w", err)
		}
		step.Payload = p
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (s *Store) ListRuns(ctx context.Context, opts storage.ListOptions) ([]*domain.Run, error) {
	query := `SELECT id FROM runs`
	args := []any{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]*domain.Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
