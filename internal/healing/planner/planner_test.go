package planner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

type fakeExecutor struct {
	mu      sync.Mutex
	actions []string
	result  bool
}

func (f *fakeExecutor) Execute(ctx context.Context, action string, actx domain.ActionContext) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return f.result
}

func TestAnalyze(t *testing.T) {
	p := New(&fakeExecutor{}, nil, nil, nil)

	tests := []struct {
		metrics map[string]float64
		want    string
	}{
		{map[string]float64{"cpu_percent": 95, "memory_percent": 90}, IssueHighCPU},
		{map[string]float64{"memory_percent": 90}, IssueHighMemory},
		{map[string]float64{"packet_loss_percent": 7}, IssueNetworkLoss},
		{map[string]float64{"cpu_percent": 90, "packet_loss_percent": 5}, IssueHealthy},
		{nil, IssueHealthy},
	}
	for _, tt := range tests {
		if got := p.Analyze(tt.metrics); got != tt.want {
			t.Errorf("Analyze(%v) = %s, want %s", tt.metrics, got, tt.want)
		}
	}
}

func TestPlan_Defaults(t *testing.T) {
	p := New(&fakeExecutor{}, nil, map[string]string{"Disk Full": "Clear cache"}, nil)

	tests := map[string]string{
		IssueHighCPU:     "Restart service",
		IssueHighMemory:  "Clear cache",
		IssueNetworkLoss: "Switch route",
		"Disk Full":      "Clear cache",
		"Solar Flare":    NoActionNeeded,
	}
	for issue, want := range tests {
		if got := p.Plan(issue); got != want {
			t.Errorf("Plan(%s) = %s, want %s", issue, got, want)
		}
	}
}

func TestPlan_PrefersKnowledge(t *testing.T) {
	k := NewKnowledge(0)
	k.Record(IssueHighCPU, "Scale up", true, 2*time.Second)
	k.Record(IssueHighCPU, "Restart service", true, 5*time.Second)
	k.Record(IssueHighCPU, "Failover", false, 0)

	p := New(&fakeExecutor{}, k, nil, nil)
	if got := p.Plan(IssueHighCPU); got != "Scale up" {
		t.Errorf("expected fastest successful action, got %s", got)
	}
}

func TestKnowledge_RecommendedAction(t *testing.T) {
	k := NewKnowledge(0)
	if _, ok := k.RecommendedAction("x"); ok {
		t.Error("empty knowledge should not recommend")
	}

	// Missing MTTR counts as 10s
	k.Record("x", "A", true, 0)
	k.Record("x", "B", true, 12*time.Second)
	k.Record("x", "B", true, 4*time.Second)
	if got, _ := k.RecommendedAction("x"); got != "B" {
		t.Errorf("expected B (8s avg) over A (10s), got %s", got)
	}

	if avg, ok := k.AverageMTTR("x"); !ok || avg != 8*time.Second {
		t.Errorf("expected 8s average, got %v (%v)", avg, ok)
	}
}

func TestKnowledge_Bounded(t *testing.T) {
	k := NewKnowledge(3)
	for i := 0; i < 5; i++ {
		k.Record("x", "A", i%2 == 0, time.Second)
	}
	if got := len(k.History()); got != 3 {
		t.Errorf("expected 3 incidents, got %d", got)
	}
}

func TestHandle(t *testing.T) {
	exec := &fakeExecutor{result: true}
	p := New(exec, nil, nil, nil)
	ctx := context.Background()

	report := p.Handle(ctx, IssueHighMemory, nil)
	if !report.Executed || !report.Success || report.Action != "Clear cache" {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(p.Knowledge().History()) != 1 {
		t.Error("expected incident to be recorded")
	}

	if report := p.Handle(ctx, IssueHealthy, nil); report.Executed {
		t.Error("healthy systems should not trigger actions")
	}
	if report := p.Handle(ctx, "Solar Flare", nil); report.Executed || report.Action != NoActionNeeded {
		t.Errorf("unknown issue should be skipped: %+v", report)
	}
	if len(exec.actions) != 1 {
		t.Errorf("expected one executed action, got %v", exec.actions)
	}
}

func TestHandle_FailureNotRecommended(t *testing.T) {
	exec := &fakeExecutor{result: false}
	p := New(exec, nil, nil, nil)

	p.Handle(context.Background(), IssueNetworkLoss, nil)
	if _, ok := p.Knowledge().RecommendedAction(IssueNetworkLoss); ok {
		t.Error("failed incidents should not produce recommendations")
	}
}
