package api

import (
	"log/slog"
	"net/http"
	"time"

	"parkgo/events"
)

// NewRouter wires every endpoint. Run history routes are only mounted when
// store is non-nil.
func NewRouter(src StatusSource, store RunHistory, broker *events.Broker, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", GetStatus(src))
	mux.HandleFunc("GET /api/status/history", GetStatusHistory(src))
	mux.HandleFunc("POST /api/refresh", PostRefresh(src))
	mux.HandleFunc("GET /healthz", Health(src))

	if broker != nil {
		mux.HandleFunc("GET /api/events", SSEHandler(broker, src))
	}
	if store != nil {
		mux.HandleFunc("GET /api/runs", GetRuns(store))
		mux.HandleFunc("GET /api/runs/stats", GetStepStats(store))
		mux.HandleFunc("GET /api/runs/{id}", GetRun(store))
	}

	return requestLogger(logger, cors(mux))
}

// cors allows the status page to poll from any origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
