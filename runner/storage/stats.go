package storage

import (
	"context"
	"fmt"
)

// StepStats summarizes how often a step was attempted and failed
type StepStats struct {
	Step        string  `json:"step"`
	Attempts    int     `json:"attempts"`
	Failures    int     `json:"failures"`
	LastFailure *string `json:"last_failure,omitempty"`
}

// GetStepStats returns attempt and failure counts per step over the most
// recent runs
func (s *Storage) GetStepStats(ctx context.Context, recentRuns int) ([]StepStats, error) {
	query := `
		SELECT
			so.step,
			COUNT(*) AS attempts,
			SUM(CASE WHEN so.succeeded = 0 THEN 1 ELSE 0 END) AS failures,
			MAX(CASE WHEN so.succeeded = 0 THEN so.occurred_at END) AS last_failure
		FROM step_outcomes so
		WHERE so.run_id IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)
		GROUP BY so.step
		ORDER BY MIN(so.position)
	`

	rows, err := s.db.QueryContext(ctx, query, recentRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to query step stats: %w", err)
	}
	defer rows.Close()

	stats := make([]StepStats, 0)
	for rows.Next() {
		var stat StepStats
		var lastFailure *string

		if err := rows.Scan(&stat.Step, &stat.Attempts, &stat.Failures, &lastFailure); err != nil {
			return nil, fmt.Errorf("failed to scan step stats: %w", err)
		}
		stat.LastFailure = lastFailure
		stats = append(stats, stat)
	}

	return stats, rows.Err()
}
