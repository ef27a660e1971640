package recovery

import (
	"context"
	"fmt"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/healing/metrics"
)

// RollbackAction returns the compensating action text for d. Restarts and
// cache clears have no compensation and report false.
func RollbackAction(d domain.RollbackDescriptor) (string, bool) {
	actx := d.Context
	switch domain.ActionType(d.ActionType) {
	case domain.ActionSwitchRoute:
		return "Switch route to " + actx.String("old_route", "previous"), true
	case domain.ActionScaleUp:
		return fmt.Sprintf("Scale down %s to %d",
			actx.String("deployment_name", "unknown"), actx.Int("old_replicas", 1)), true
	case domain.ActionScaleDown:
		return fmt.Sprintf("Scale up %s to %d",
			actx.String("deployment_name", "unknown"), actx.Int("old_replicas", 1)), true
	case domain.ActionFailover:
		return "Failover back to " + actx.String("primary_region", "original"), true
	case domain.ActionQuarantineNode:
		return "Unquarantine node " + actx.String("node_id", "unknown"), true
	default:
		return "", false
	}
}

// RollbackLastAction pops the most recent successful action and executes its
// compensation with the original context. It returns false when the stack is
// empty or the action has no compensation.
func (e *Executor) RollbackLastAction(ctx context.Context) bool {
	e.mu.Lock()
	d, ok := e.rollbacks.Pop()
	e.mu.Unlock()
	if !ok {
		e.logger.Warn("No actions to rollback")
		return false
	}

	e.logger.Info("Rolling back action", "action_type", d.ActionType, "recorded_at", d.Timestamp)

	action, ok := RollbackAction(d)
	if !ok {
		metrics.RollbacksTotal.WithLabelValues(d.ActionType, "unsupported").Inc()
		e.logger.Warn("No rollback strategy for action", "action_type", d.ActionType)
		return false
	}

	success := e.Execute(ctx, action, d.Context)
	metrics.RollbacksTotal.WithLabelValues(d.ActionType, metrics.Result(success)).Inc()
	return success
}

// RollbackDepth returns the number of actions available for rollback.
func (e *Executor) RollbackDepth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rollbacks.Len()
}
