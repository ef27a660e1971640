package recovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

func TestRollbackAction(t *testing.T) {
	tests := []struct {
		actionType domain.ActionType
		ctx        domain.ActionContext
		want       string
		ok         bool
	}{
		{domain.ActionSwitchRoute, domain.ActionContext{"old_route": "r1"}, "Switch route to r1", true},
		{domain.ActionSwitchRoute, nil, "Switch route to previous", true},
		{domain.ActionScaleUp, domain.ActionContext{"deployment_name": "api", "old_replicas": 2}, "Scale down api to 2", true},
		{domain.ActionScaleUp, domain.ActionContext{"deployment_name": "api"}, "Scale down api to 1", true},
		{domain.ActionScaleDown, domain.ActionContext{"deployment_name": "api", "old_replicas": 4}, "Scale up api to 4", true},
		{domain.ActionFailover, domain.ActionContext{"primary_region": "eu-west"}, "Failover back to eu-west", true},
		{domain.ActionFailover, nil, "Failover back to original", true},
		{domain.ActionQuarantineNode, domain.ActionContext{"node_id": "n3"}, "Unquarantine node n3", true},
		{domain.ActionRestartService, domain.ActionContext{"service_name": "svc"}, "", false},
		{domain.ActionClearCache, nil, "", false},
		{domain.ActionNone, nil, "", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.actionType, tt.want), func(t *testing.T) {
			got, ok := RollbackAction(domain.RollbackDescriptor{ActionType: string(tt.actionType), Context: tt.ctx})
			if got != tt.want || ok != tt.ok {
				t.Errorf("RollbackAction = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRollback_SwitchRouteRoundTrip(t *testing.T) {
	e, _ := newTestExecutor(testConfig())
	ctx := context.Background()

	if !e.Execute(ctx, "Switch route", domain.ActionContext{"old_route": "r1", "alternative_route": "r2"}) {
		t.Fatal("switch route should succeed")
	}
	if !e.RollbackLastAction(ctx) {
		t.Fatal("rollback should succeed")
	}

	h := e.ActionHistory(0)
	if len(h) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(h))
	}
	original := h[len(h)-2]
	if original.ActionType != domain.ActionSwitchRoute || original.Details["old_route"] != "r1" {
		t.Errorf("unexpected original entry: %+v", original)
	}
	rollback := h[len(h)-1]
	if rollback.Action != "Switch route to r1" || rollback.ActionType != domain.ActionSwitchRoute || !rollback.Success {
		t.Errorf("unexpected rollback entry: %+v", rollback)
	}
}

func TestRollback_Empty(t *testing.T) {
	e, _ := newTestExecutor(testConfig())
	if e.RollbackLastAction(context.Background()) {
		t.Error("rollback with empty stack should return false")
	}
	if len(e.ActionHistory(0)) != 0 {
		t.Error("empty rollback must not record history")
	}
}

func TestRollback_NoStrategy(t *testing.T) {
	e, _ := newTestExecutor(testConfig())
	ctx := context.Background()

	e.QuarantineNode(ctx, "n1")
	e.RestartService(ctx, "svc", "default")

	if e.RollbackLastAction(ctx) {
		t.Error("restart has no rollback strategy")
	}
	if e.RollbackDepth() != 1 {
		t.Errorf("descriptor should still be popped, depth %d", e.RollbackDepth())
	}
	if len(e.ActionHistory(0)) != 2 {
		t.Error("unsupported rollback must not execute anything")
	}

	// Next pop reaches the quarantine
	if !e.RollbackLastAction(ctx) {
		t.Fatal("expected unquarantine to succeed")
	}
	if got := lastResult(t, e).Action; got != "Unquarantine node n1" {
		t.Errorf("unexpected rollback action %q", got)
	}
}

func TestRollback_LIFOAndBounded(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = nil
	e, _ := newTestExecutor(cfg)
	ctx := context.Background()

	for i := 1; i <= 101; i++ {
		e.QuarantineNode(ctx, fmt.Sprintf("n%d", i))
	}
	if got := e.RollbackDepth(); got != 100 {
		t.Fatalf("rollback stack should be capped at 100, got %d", got)
	}

	e.RollbackLastAction(ctx)
	if got := lastResult(t, e).Action; got != "Unquarantine node n101" {
		t.Errorf("expected newest descriptor first, got %q", got)
	}
}

func TestRollback_ScaleWrappers(t *testing.T) {
	e, _ := newTestExecutor(testConfig())
	ctx := context.Background()

	if !e.ScaleUp(ctx, "api", 3, "prod") {
		t.Fatal("scale up should succeed with simulated fallback")
	}
	if !e.RollbackLastAction(ctx) {
		t.Fatal("scale up rollback should succeed")
	}
	r := lastResult(t, e)
	if r.Action != "Scale down api to 2" || r.ActionType != domain.ActionScaleDown {
		t.Errorf("unexpected rollback: %+v", r)
	}

	e.ScaleDown(ctx, "api", 1, "prod")
	e.RollbackLastAction(ctx)
	if got := lastResult(t, e).Action; got != "Scale up api to 2" {
		t.Errorf("unexpected rollback action %q", got)
	}
}

func TestRollback_FailoverWrapper(t *testing.T) {
	e, _ := newTestExecutor(testConfig())
	ctx := context.Background()

	e.Failover(ctx, "api", "eu-west", "us-east")
	e.RollbackLastAction(ctx)

	r := lastResult(t, e)
	if r.Action != "Failover back to eu-west" || !r.Success {
		t.Errorf("unexpected rollback: %+v", r)
	}
	if r.Timestamp.IsZero() || r.Timestamp.After(time.Now()) {
		t.Errorf("unexpected timestamp %v", r.Timestamp)
	}
}
