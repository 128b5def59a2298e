package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parkgo/runner"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// SaveRun stores a finished run together with its step outcomes
func (s *Storage) SaveRun(ctx context.Context, result runner.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status := "failed"
	if result.Succeeded {
		status = "success"
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, lookup_key, status, error, started_at, finished_at, duration) VALUES (?, ?, ?, ?, ?, ?, ?)",
		result.ID, result.LookupKey, status, result.Error,
		result.StartedAt, result.StartedAt.Add(result.Elapsed), result.Elapsed.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	if err := insertOutcomes(ctx, tx, result.ID, result.Outcomes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRuns retrieves the most recent runs without their steps
func (s *Storage) GetRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, lookup_key, status, error, started_at, finished_at, duration FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetRun retrieves a single run by ID, including its steps
func (s *Storage) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, lookup_key, status, error, started_at, finished_at, duration FROM runs WHERE id = ?",
		runID,
	)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	r.Steps, err = s.getOutcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var duration sql.NullString

	err := row.Scan(&r.ID, &r.LookupKey, &r.Status, &r.Error, &r.StartedAt, &r.FinishedAt, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if duration.Valid {
		durationStr := duration.String
		r.Duration = &durationStr
	}
	return &r, nil
}
