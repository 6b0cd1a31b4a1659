package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amaumene/vortex/internal/controllers"
	"github.com/amaumene/vortex/internal/metrics"
	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/utils"
)

type staticSource struct {
	snapshot controllers.Snapshot
}

func (s staticSource) Snapshot() controllers.Snapshot {
	return s.snapshot
}

func newTestServer(t *testing.T, source staticSource, collector *metrics.Collector) *httptest.Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", source, collector, utils.NewDiscardLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, staticSource{}, nil)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Unexpected body %v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}
}

func TestHealthRejectsPost(t *testing.T) {
	ts := newTestServer(t, staticSource{}, nil)

	resp, err := http.Post(ts.URL+"/health", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	source := staticSource{snapshot: controllers.Snapshot{
		State: models.StateProcessing,
		Job: &models.DownloadJob{
			JobID:           "J1",
			Status:          models.JobStatusProcessing,
			ProgressPercent: 42,
		},
	}}
	ts := newTestServer(t, source, nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	req.Header.Set("X-Request-ID", "abc")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "abc" {
		t.Errorf("Expected request id echoed, got %q", got)
	}

	var body struct {
		State  string `json:"state"`
		Active bool   `json:"active"`
		Job    struct {
			JobID           string  `json:"job_id"`
			ProgressPercent float64 `json:"progress_percent"`
		} `json:"job"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if body.State != "processing" || !body.Active {
		t.Errorf("Unexpected state %q active=%v", body.State, body.Active)
	}
	if body.Job.JobID != "J1" || body.Job.ProgressPercent != 42 {
		t.Errorf("Unexpected job %+v", body.Job)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector()
	collector.ObservePoll(metrics.PollApplied)
	ts := newTestServer(t, staticSource{}, collector)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), `vortex_job_polls_total{result="applied"} 1`) {
		t.Errorf("Expected poll counter in metrics output")
	}
}

func TestMetricsDisabled(t *testing.T) {
	ts := newTestServer(t, staticSource{}, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without a collector, got %d", resp.StatusCode)
	}
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", staticSource{}, nil, utils.NewDiscardLogger())
	addr, err := s.Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}
