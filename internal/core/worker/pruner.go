package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vietddude/healer/internal/infra/storage"
)

// Pruner deletes persisted results older than the retention period.
type Pruner struct {
	repo      storage.ResultRepository
	nodeID    string
	retention time.Duration
	schedule  string
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewPruner creates a new Pruner worker.
func NewPruner(
	repo storage.ResultRepository,
	nodeID string,
	retention time.Duration,
	schedule string,
) *Pruner {
	return &Pruner{
		repo:      repo,
		nodeID:    nodeID,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
	}
}

// Start schedules pruning. It runs one prune immediately and returns without
// blocking; Stop ends the schedule.
func (p *Pruner) Start(ctx context.Context) error {
	if p.retention <= 0 {
		return nil // Retention disabled
	}

	c := cron.New()
	if _, err := c.AddFunc(p.schedule, func() { p.Prune(ctx) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.schedule, err)
	}

	p.mu.Lock()
	p.cron = c
	p.mu.Unlock()

	// Initial prune
	p.Prune(ctx)
	c.Start()

	slog.Info("[Pruner] started", "node_id", p.nodeID, "retention", p.retention, "schedule", p.schedule)
	return nil
}

// Stop stops the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Prune removes results older than the retention period and returns the count.
func (p *Pruner) Prune(ctx context.Context) int64 {
	threshold := p.now().Add(-p.retention)

	removed, err := p.repo.DeleteOlderThan(ctx, p.nodeID, threshold)
	if err != nil {
		slog.Error("[Pruner] failed to prune recovery results", "node_id", p.nodeID, "error", err)
		return 0
	}
	if removed > 0 {
		slog.Debug("[Pruner] pruned recovery results", "node_id", p.nodeID, "removed", removed)
	}
	return removed
}
