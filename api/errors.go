package api

import (
	"encoding/json"
	"net/http"

	"github.com/moogar0880/problems"
)

const problemContentType = "application/problem+json"

func writeProblem(w http.ResponseWriter, status int, problem any) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(problem)
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, http.StatusBadRequest, problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(r.URL.Path).
		WithType("validation_error").
		WithDetail(detail))
}

func notFound(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, http.StatusNotFound, problems.NewStatusProblem(http.StatusNotFound).
		WithInstance(r.URL.Path).
		WithType("not_found").
		WithDetail(detail))
}

func unavailable(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, http.StatusServiceUnavailable, problems.NewStatusProblem(http.StatusServiceUnavailable).
		WithInstance(r.URL.Path).
		WithType("unavailable").
		WithDetail(detail))
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	writeProblem(w, http.StatusInternalServerError, problems.NewStatusProblem(http.StatusInternalServerError).
		WithInstance(r.URL.Path).
		WithType("internal_error").
		WithError(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
