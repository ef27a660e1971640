package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/healing/breaker"
	"github.com/vietddude/healer/internal/healing/catalog"
	"github.com/vietddude/healer/internal/healing/planner"
	"github.com/vietddude/healer/internal/healing/recovery"
	"github.com/vietddude/healer/internal/healing/throttle"
)

// =============================================================================
// Helpers
// =============================================================================

type noManagerRunner struct{}

func (noManagerRunner) Run(ctx context.Context, name string, args ...string) (catalog.CommandResult, error) {
	return catalog.CommandResult{}, catalog.ErrCommandNotFound
}

func newExecutor(cfg recovery.Config) (*recovery.Executor, *catalog.Catalog) {
	cat := catalog.New(catalog.DefaultConfig(), noManagerRunner{})
	return recovery.NewExecutor(cfg, cat), cat
}

func testConfig() recovery.Config {
	cfg := recovery.DefaultConfig()
	cfg.NodeID = "node-http"
	cfg.RetryDelay = 0
	return cfg
}

func newTestServer(t *testing.T, exec *recovery.Executor) *httptest.Server {
	t.Helper()
	monitor := NewMonitor(exec)
	p := planner.New(exec, nil, nil, nil)
	srv := httptest.NewServer(NewServer(monitor, exec, p, 0).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return v
}

// =============================================================================
// Monitor Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	exec, _ := newExecutor(testConfig())
	report := NewMonitor(exec).CheckHealth(context.Background())

	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
	if report.NodeID != "node-http" || !report.CircuitBreaker.Enabled || !report.RateLimiter.Enabled {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestMonitor_CriticalWhenOpen(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 1
	cfg.CircuitBreaker = &breaker.Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour}
	exec, cat := newExecutor(cfg)
	cat.Register(domain.ActionRestartService, func(ctx context.Context, actx domain.ActionContext) (domain.RecoveryResult, error) {
		return domain.RecoveryResult{}, errors.New("boom")
	})
	exec.Execute(context.Background(), "Restart service", nil)

	monitor := NewMonitor(exec)
	if got := monitor.CheckHealth(context.Background()).SystemStatus; got != StatusCritical {
		t.Errorf("expected critical, got %s", got)
	}
	last, ok := monitor.LastReport()
	if !ok || last.SystemStatus != StatusCritical {
		t.Error("expected last report to be cached")
	}
}

func TestMonitor_Degraded(t *testing.T) {
	t.Run("limiter saturated", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit = &throttle.Config{MaxActions: 1, Window: time.Hour}
		exec, _ := newExecutor(cfg)
		exec.QuarantineNode(context.Background(), "n1")

		if got := NewMonitor(exec).CheckHealth(context.Background()).SystemStatus; got != StatusDegraded {
			t.Errorf("expected degraded, got %s", got)
		}
	})

	t.Run("low success rate", func(t *testing.T) {
		exec, _ := newExecutor(testConfig())
		for i := 0; i < 5; i++ {
			exec.Execute(context.Background(), "unknown thing", nil)
		}
		if got := NewMonitor(exec).CheckHealth(context.Background()).SystemStatus; got != StatusDegraded {
			t.Errorf("expected degraded, got %s", got)
		}
	})

	t.Run("component failure", func(t *testing.T) {
		exec, _ := newExecutor(testConfig())
		monitor := NewMonitor(exec)
		monitor.AddCheck("storage", func(ctx context.Context) error { return errors.New("connection refused") })

		report := monitor.CheckHealth(context.Background())
		if report.SystemStatus != StatusDegraded || report.Components["storage"] != "connection refused" {
			t.Errorf("unexpected report: %+v", report)
		}
	})
}

// =============================================================================
// HTTP Tests
// =============================================================================

func TestServer_Health(t *testing.T) {
	exec, _ := newExecutor(testConfig())
	srv := newTestServer(t, exec)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if body := decode[map[string]string](t, resp); body["status"] != "healthy" {
		t.Errorf("unexpected body: %v", body)
	}

	resp, _ = http.Get(srv.URL + "/health/detailed")
	detailed := decode[map[string]any](t, resp)
	if detailed["node_id"] != "node-http" {
		t.Errorf("unexpected detailed report: %v", detailed)
	}
}

func TestServer_ActionsHistoryRollback(t *testing.T) {
	exec, _ := newExecutor(testConfig())
	srv := newTestServer(t, exec)

	resp := postJSON(t, srv.URL+"/actions", map[string]any{
		"action":  "Quarantine node",
		"context": map[string]any{"node_id": "n5"},
	})
	if body := decode[map[string]bool](t, resp); !body["success"] {
		t.Fatalf("expected success, got %v", body)
	}

	resp = postJSON(t, srv.URL+"/rollback", nil)
	if body := decode[map[string]bool](t, resp); !body["success"] {
		t.Fatalf("expected rollback success, got %v", body)
	}

	resp, _ = http.Get(srv.URL + "/history?limit=1")
	history := decode[[]domain.RecoveryResult](t, resp)
	if len(history) != 1 || history[0].Action != "Unquarantine node n5" {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestServer_BadRequests(t *testing.T) {
	exec, _ := newExecutor(testConfig())
	srv := newTestServer(t, exec)

	resp := postJSON(t, srv.URL+"/actions", map[string]any{"context": map[string]any{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing action: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(srv.URL + "/history?limit=abc")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/issues", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty issue: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(srv.URL + "/actions")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /actions: expected 405, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestServer_Issues(t *testing.T) {
	exec, _ := newExecutor(testConfig())
	srv := newTestServer(t, exec)

	resp := postJSON(t, srv.URL+"/issues", map[string]any{
		"metrics": map[string]float64{"cpu_percent": 97},
		"context": map[string]any{"service_name": "api"},
	})
	report := decode[planner.CycleReport](t, resp)
	if report.Issue != planner.IssueHighCPU || report.Action != "Restart service" || !report.Executed || !report.Success {
		t.Errorf("unexpected cycle report: %+v", report)
	}

	resp = postJSON(t, srv.URL+"/issues", map[string]any{"issue": "Network Loss"})
	report = decode[planner.CycleReport](t, resp)
	if report.Action != "Switch route" || !report.Success {
		t.Errorf("unexpected cycle report: %+v", report)
	}
}

func TestServer_CircuitReset(t *testing.T) {
	exec, _ := newExecutor(testConfig())
	srv := newTestServer(t, exec)

	resp := postJSON(t, srv.URL+"/circuit/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	cfg := testConfig()
	cfg.CircuitBreaker = nil
	exec, _ = newExecutor(cfg)
	srv = newTestServer(t, exec)
	resp = postJSON(t, srv.URL+"/circuit/reset", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 without breaker, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestServer_Metrics(t *testing.T) {
	exec, _ := newExecutor(testConfig())
	srv := newTestServer(t, exec)
	exec.ClearCache(context.Background(), "api", "all")

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !bytes.Contains(buf.Bytes(), []byte("healer_actions_total")) {
		t.Error("expected healer metrics to be exported")
	}
}
