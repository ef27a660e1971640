package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/storage/memory"
)

func TestPruner_Prune(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewResultStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	repo.Save(ctx, &domain.RecoveryResult{ID: "old", NodeID: "n1", Timestamp: now.Add(-48 * time.Hour)})
	repo.Save(ctx, &domain.RecoveryResult{ID: "new", NodeID: "n1", Timestamp: now.Add(-time.Hour)})

	p := NewPruner(repo, "n1", 24*time.Hour, "@hourly")
	p.now = func() time.Time { return now }

	if removed := p.Prune(ctx); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if n, _ := repo.Count(ctx, "n1"); n != 1 {
		t.Errorf("expected 1 remaining, got %d", n)
	}
}

func TestPruner_StartStop(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewResultStore()
	repo.Save(ctx, &domain.RecoveryResult{ID: "old", NodeID: "n1", Timestamp: time.Now().Add(-2 * time.Hour)})

	p := NewPruner(repo, "n1", time.Hour, "@every 1h")
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	// Start prunes once immediately
	if n, _ := repo.Count(ctx, "n1"); n != 0 {
		t.Errorf("expected initial prune, %d remaining", n)
	}
}

func TestPruner_Disabled(t *testing.T) {
	p := NewPruner(memory.NewResultStore(), "n1", 0, "not a schedule")
	if err := p.Start(context.Background()); err != nil {
		t.Errorf("disabled pruner should not validate schedule: %v", err)
	}
	p.Stop()
}

func TestPruner_BadSchedule(t *testing.T) {
	p := NewPruner(memory.NewResultStore(), "n1", time.Hour, "not a schedule")
	if err := p.Start(context.Background()); err == nil {
		t.Error("expected schedule error")
	}
}
