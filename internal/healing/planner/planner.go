// Package planner implements the plan and execute phases of the MAPE-K loop
// on top of the recovery executor.
package planner

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/healing/metrics"
)

const (
	IssueHealthy     = "Healthy"
	IssueHighCPU     = "High CPU"
	IssueHighMemory  = "High Memory"
	IssueNetworkLoss = "Network Loss"

	// NoActionNeeded is planned for issues without a strategy.
	NoActionNeeded = "No action needed"
)

// DefaultStrategies maps known issues to recovery actions.
func DefaultStrategies() map[string]string {
	return map[string]string{
		IssueHighCPU:     "Restart service",
		IssueHighMemory:  "Clear cache",
		IssueNetworkLoss: "Switch route",
	}
}

// ActionExecutor runs a recovery action.
type ActionExecutor interface {
	Execute(ctx context.Context, action string, actx domain.ActionContext) bool
}

// CycleReport describes one handled issue.
type CycleReport struct {
	Issue    string        `json:"issue"`
	Action   string        `json:"action"`
	Executed bool          `json:"executed"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
}

// Planner selects and runs recovery actions for detected issues.
type Planner struct {
	executor   ActionExecutor
	knowledge  *Knowledge
	strategies map[string]string
	logger     *slog.Logger
}

// New creates a planner. overrides are merged over DefaultStrategies.
func New(executor ActionExecutor, knowledge *Knowledge, overrides map[string]string, logger *slog.Logger) *Planner {
	strategies := DefaultStrategies()
	maps.Copy(strategies, overrides)
	if knowledge == nil {
		knowledge = NewKnowledge(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		executor:   executor,
		knowledge:  knowledge,
		strategies: strategies,
		logger:     logger,
	}
}

// Knowledge returns the planner's knowledge store.
func (p *Planner) Knowledge() *Knowledge {
	return p.knowledge
}

// Analyze maps metric threshold breaches to an issue name.
func (p *Planner) Analyze(m map[string]float64) string {
	switch {
	case m["cpu_percent"] > 90:
		return IssueHighCPU
	case m["memory_percent"] > 85:
		return IssueHighMemory
	case m["packet_loss_percent"] > 5:
		return IssueNetworkLoss
	default:
		return IssueHealthy
	}
}

// Plan picks the action for issue, preferring what worked before.
func (p *Planner) Plan(issue string) string {
	if action, ok := p.knowledge.RecommendedAction(issue); ok {
		p.logger.Debug("Using recommended action from knowledge", "issue", issue, "action", action)
		return action
	}
	if action, ok := p.strategies[issue]; ok {
		return action
	}
	return NoActionNeeded
}

// Handle plans and executes a recovery for issue and records the outcome.
func (p *Planner) Handle(ctx context.Context, issue string, actx domain.ActionContext) CycleReport {
	report := CycleReport{Issue: issue}
	if issue == IssueHealthy || issue == "" {
		return report
	}

	report.Action = p.Plan(issue)
	if report.Action == NoActionNeeded {
		p.logger.Info("No recovery strategy for issue", "issue", issue)
		metrics.PlannerCycles.WithLabelValues(issue, "skipped").Inc()
		return report
	}

	p.logger.Info("Executing action", "issue", issue, "action", report.Action)
	start := time.Now()
	report.Success = p.executor.Execute(ctx, report.Action, actx)
	report.Duration = time.Since(start)
	report.Executed = true

	var mttr time.Duration
	if report.Success {
		mttr = report.Duration
	}
	p.knowledge.Record(issue, report.Action, report.Success, mttr)
	metrics.PlannerCycles.WithLabelValues(issue, metrics.Result(report.Success)).Inc()
	return report
}
