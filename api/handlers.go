// Package api exposes the published status and run history over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"parkgo/runner"
	"parkgo/runner/storage"
	"parkgo/status"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
	defaultRecent   = 20
)

// StatusSource is the published status the handlers read and refresh.
type StatusSource interface {
	Current() status.Record
	History() []status.Outcome
	Ready() bool
	ForceRefresh(ctx context.Context, lookupKey string) (status.Record, error)
}

// RunHistory is the persisted run log.
type RunHistory interface {
	GetRuns(ctx context.Context, limit int) ([]*storage.Run, error)
	GetRun(ctx context.Context, runID string) (*storage.Run, error)
	GetStepStats(ctx context.Context, recentRuns int) ([]storage.StepStats, error)
}

// GetStatus returns the current status record
func GetStatus(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Current())
	}
}

// GetStatusHistory returns the step outcomes of the current record
func GetStatusHistory(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.History())
	}
}

type refreshRequest struct {
	LookupKey string `json:"lookup_key"`
}

// PostRefresh runs one cycle now and returns the record it published. The
// body is optional; without it the scheduled lookup key is used.
func PostRefresh(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(w, r, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.LookupKey != "" {
			if err := runner.ValidateLookupKey(req.LookupKey); err != nil {
				badRequest(w, r, err.Error())
				return
			}
		}

		rec, err := src.ForceRefresh(r.Context(), req.LookupKey)
		if err != nil {
			unavailable(w, r, fmt.Sprintf("refresh interrupted: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// GetRuns returns the most recent persisted runs
func GetRuns(store RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := intParam(r, "limit", defaultRunLimit, maxRunLimit)
		if err != nil {
			badRequest(w, r, err.Error())
			return
		}

		runs, err := store.GetRuns(r.Context(), limit)
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// GetRun returns a single run with its steps
func GetRun(store RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := r.PathValue("id")

		run, err := store.GetRun(r.Context(), runID)
		if errors.Is(err, storage.ErrRunNotFound) {
			notFound(w, r, fmt.Sprintf("run %s not found", runID))
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// GetStepStats returns per-step attempt and failure counts over recent runs
func GetStepStats(store RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recent, err := intParam(r, "recent", defaultRecent, maxRunLimit)
		if err != nil {
			badRequest(w, r, err.Error())
			return
		}

		stats, err := store.GetStepStats(r.Context(), recent)
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// Health reports liveness and whether a record has been published yet
func Health(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := src.Current()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"ready":        src.Ready(),
			"generated_at": rec.GeneratedAt.Format(time.RFC3339),
		})
	}
}

func intParam(r *http.Request, name string, def, limit int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return min(n, limit), nil
}
