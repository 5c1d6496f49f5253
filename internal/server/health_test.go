package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jittakal/onebrc/internal/pipeline"
)

var _ RunProgress = (*pipeline.Progress)(nil)

// mockHealthChecker implements HealthChecker for testing
type mockHealthChecker struct {
	liveness  bool
	readiness bool
	status    map[string]string
}

func (m *mockHealthChecker) Liveness() bool {
	return m.liveness
}

func (m *mockHealthChecker) Readiness(ctx context.Context) bool {
	return m.readiness
}

func (m *mockHealthChecker) GetStatus() map[string]string {
	return m.status
}

// mockProgress implements RunProgress for testing
type mockProgress struct {
	read, total   int64
	running, done bool
}

func (m *mockProgress) BytesRead() int64 { return m.read }
func (m *mockProgress) Total() int64     { return m.total }
func (m *mockProgress) Running() bool    { return m.running }
func (m *mockProgress) Done() bool       { return m.done }
func (m *mockProgress) Fraction() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.read) / float64(m.total)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var response HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestLivenessHandler(t *testing.T) {
	tests := []struct {
		name       string
		liveness   bool
		wantCode   int
		wantStatus string
	}{
		{"alive", true, http.StatusOK, "alive"},
		{"not alive", false, http.StatusServiceUnavailable, "not alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := LivenessHandler(&mockHealthChecker{liveness: tt.liveness}, testLogger())
			req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}
			response := decodeHealth(t, w)
			if response.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", response.Status, tt.wantStatus)
			}
			if response.Timestamp == "" {
				t.Error("timestamp should be set")
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		readiness  bool
		wantCode   int
		wantStatus string
	}{
		{"ready", true, http.StatusOK, "ready"},
		{"not ready", false, http.StatusServiceUnavailable, "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &mockHealthChecker{
				readiness: tt.readiness,
				status:    map[string]string{"state": "running"},
			}
			handler := ReadinessHandler(checker, testLogger())
			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			response := decodeHealth(t, w)
			if response.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", response.Status, tt.wantStatus)
			}
			if response.Checks["state"] != "running" {
				t.Errorf("checks = %v", response.Checks)
			}
		})
	}
}

func TestProgressChecker(t *testing.T) {
	tests := []struct {
		name      string
		progress  *mockProgress
		wantReady bool
		wantState string
		wantRatio string
	}{
		{"pending", &mockProgress{total: 100}, false, "pending", "0.000"},
		{"running", &mockProgress{read: 25, total: 100, running: true}, true, "running", "0.250"},
		{"done", &mockProgress{read: 100, total: 100, done: true}, true, "done", "1.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewProgressChecker(tt.progress)
			if !checker.Liveness() {
				t.Error("Liveness() should be true")
			}
			if got := checker.Readiness(context.Background()); got != tt.wantReady {
				t.Errorf("Readiness() = %v, want %v", got, tt.wantReady)
			}
			status := checker.GetStatus()
			if status["state"] != tt.wantState {
				t.Errorf("state = %s, want %s", status["state"], tt.wantState)
			}
			if status["progress"] != tt.wantRatio {
				t.Errorf("progress = %s, want %s", status["progress"], tt.wantRatio)
			}
			if status["bytes_total"] != "100" {
				t.Errorf("bytes_total = %s, want 100", status["bytes_total"])
			}
		})
	}
}

func TestProgressChecker_PipelineProgress(t *testing.T) {
	checker := NewProgressChecker(pipeline.NewProgress(4096))

	if checker.Readiness(context.Background()) {
		t.Error("a run that has not started should not be ready")
	}
	if got := checker.GetStatus()["bytes_read"]; got != "0" {
		t.Errorf("bytes_read = %s, want 0", got)
	}
}
