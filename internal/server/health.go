package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns a handler for liveness probes.
func LivenessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "alive"
		statusCode := http.StatusOK

		if !checker.Liveness() {
			status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}

		writeJSON(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, logger)
	}
}

// ReadinessHandler returns a handler for readiness probes. The response
// carries the checker's status map.
func ReadinessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		writeJSON(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checker.GetStatus(),
		}, logger)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, response HealthResponse, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

// RunProgress is the view of a pipeline run the health checks need.
// *pipeline.Progress satisfies it.
type RunProgress interface {
	BytesRead() int64
	Total() int64
	Running() bool
	Done() bool
	Fraction() float64
}

// ProgressChecker reports a run as ready once it has started.
type ProgressChecker struct {
	progress RunProgress
}

// NewProgressChecker creates a checker over progress.
func NewProgressChecker(progress RunProgress) *ProgressChecker {
	return &ProgressChecker{progress: progress}
}

// Liveness always reports true while the process serves requests.
func (c *ProgressChecker) Liveness() bool {
	return true
}

// Readiness reports whether the run has started.
func (c *ProgressChecker) Readiness(ctx context.Context) bool {
	return c.progress.Running() || c.progress.Done()
}

// GetStatus returns the run state and bytes read.
func (c *ProgressChecker) GetStatus() map[string]string {
	state := "pending"
	switch {
	case c.progress.Done():
		state = "done"
	case c.progress.Running():
		state = "running"
	}
	return map[string]string{
		"state":       state,
		"bytes_read":  strconv.FormatInt(c.progress.BytesRead(), 10),
		"bytes_total": strconv.FormatInt(c.progress.Total(), 10),
		"progress":    strconv.FormatFloat(c.progress.Fraction(), 'f', 3, 64),
	}
}
