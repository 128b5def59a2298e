package storage

import (
	"context"
	"database/sql"
	"fmt"

	"parkgo/runner"
)

// insertOutcomes stores the outcomes of a run in execution order
func insertOutcomes(ctx context.Context, tx *sql.Tx, runID string, outcomes []runner.StepOutcome) error {
	for i, o := range outcomes {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO step_outcomes (run_id, position, step, succeeded, message, occurred_at) VALUES (?, ?, ?, ?, ?, ?)",
			runID, i, string(o.Step), o.Succeeded, o.Message, o.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create step outcome: %w", err)
		}
	}
	return nil
}

// getOutcomes retrieves all step outcomes for a run
func (s *Storage) getOutcomes(ctx context.Context, runID string) ([]*Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, position, step, succeeded, message, occurred_at FROM step_outcomes WHERE run_id = ? ORDER BY position ASC",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query step outcomes: %w", err)
	}
	defer rows.Close()

	steps := make([]*Outcome, 0)
	for rows.Next() {
		var step Outcome
		if err := rows.Scan(&step.ID, &step.RunID, &step.Position, &step.Step, &step.Succeeded, &step.Message, &step.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan step outcome: %w", err)
		}
		steps = append(steps, &step)
	}

	return steps, rows.Err()
}
