package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkgo/runner"
	"parkgo/runner/storage"
)

func newStorage(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "parkgo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, startedAt time.Time, failOn runner.StepName) runner.RunResult {
	result := runner.RunResult{ID: id, LookupKey: "1255", StartedAt: startedAt, Elapsed: 12 * time.Second}
	for i, step := range runner.Steps {
		outcome := runner.StepOutcome{Step: step, Succeeded: step != failOn, Message: "ok", OccurredAt: startedAt.Add(time.Duration(i) * time.Second)}
		if !outcome.Succeeded {
			outcome.Message = string(step) + " timed out"
			result.Outcomes = append(result.Outcomes, outcome)
			result.Error = outcome.Message
			return result
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	result.Succeeded = true
	return result
}

func TestSaveAndGetRun(t *testing.T) {
	store := newStorage(t)
	ctx := context.Background()
	startedAt := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, sampleRun("run-1", startedAt, runner.StepVehicleSelection)))

	run, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, "1255", run.LookupKey)
	assert.Equal(t, "vehicle_selection timed out", run.Error)
	assert.True(t, run.StartedAt.Equal(startedAt))
	assert.True(t, run.FinishedAt.Equal(startedAt.Add(12*time.Second)))
	require.NotNil(t, run.Duration)
	assert.Equal(t, "12s", *run.Duration)

	require.Len(t, run.Steps, 4)
	for i, step := range run.Steps {
		assert.Equal(t, i, step.Position)
		assert.Equal(t, string(runner.Steps[i]), step.Step)
	}
	assert.False(t, run.Steps[3].Succeeded)
	assert.True(t, run.Steps[0].Succeeded)
}

func TestGetRun_NotFound(t *testing.T) {
	store := newStorage(t)

	_, err := store.GetRun(context.Background(), "missing")

	assert.True(t, errors.Is(err, storage.ErrRunNotFound))
}

func TestGetRuns_MostRecentFirst(t *testing.T) {
	store := newStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, sampleRun("old", base, "")))
	require.NoError(t, store.SaveRun(ctx, sampleRun("new", base.Add(time.Minute), runner.StepLogin)))
	require.NoError(t, store.SaveRun(ctx, sampleRun("mid", base.Add(30*time.Second), "")))

	runs, err := store.GetRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "success", runs[1].Status)
	assert.Empty(t, runs[0].Steps)
}

func TestSaveRun_EnvironmentFailure(t *testing.T) {
	store := newStorage(t)
	ctx := context.Background()
	result := runner.RunResult{ID: "env", LookupKey: "1255", StartedAt: time.Now(), Error: "failed to start browser session"}

	require.NoError(t, store.SaveRun(ctx, result))

	run, err := store.GetRun(ctx, "env")
	require.NoError(t, err)
	assert.Equal(t, "failed", run.Status)
	assert.Empty(t, run.Steps)
}

func TestSaveRun_DuplicateID(t *testing.T) {
	store := newStorage(t)
	ctx := context.Background()
	run := sampleRun("dup", time.Now(), "")

	require.NoError(t, store.SaveRun(ctx, run))
	assert.Error(t, store.SaveRun(ctx, run))

	stored, err := store.GetRun(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, stored.Steps, 5)
}

func TestGetStepStats(t *testing.T) {
	store := newStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, sampleRun("a", base, "")))
	require.NoError(t, store.SaveRun(ctx, sampleRun("b", base.Add(time.Minute), runner.StepVehicleSearch)))
	require.NoError(t, store.SaveRun(ctx, sampleRun("c", base.Add(2*time.Minute), runner.StepVehicleSearch)))

	stats, err := store.GetStepStats(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stats, 5)

	assert.Equal(t, "site_access", stats[0].Step)
	assert.Equal(t, 3, stats[0].Attempts)
	assert.Equal(t, 0, stats[0].Failures)
	assert.Nil(t, stats[0].LastFailure)

	assert.Equal(t, "vehicle_search", stats[2].Step)
	assert.Equal(t, 3, stats[2].Attempts)
	assert.Equal(t, 2, stats[2].Failures)
	assert.NotNil(t, stats[2].LastFailure)

	assert.Equal(t, "discount_application", stats[4].Step)
	assert.Equal(t, 1, stats[4].Attempts)
}
