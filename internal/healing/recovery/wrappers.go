package recovery

import (
	"context"
	"maps"

	"github.com/vietddude/healer/internal/core/domain"
)

// RestartService restarts a service in namespace.
func (e *Executor) RestartService(ctx context.Context, service, namespace string) bool {
	return e.Execute(ctx, "Restart service", domain.ActionContext{
		"service_name": service,
		"namespace":    namespace,
	})
}

// SwitchRoute moves traffic from oldRoute to newRoute.
func (e *Executor) SwitchRoute(ctx context.Context, oldRoute, newRoute string) bool {
	return e.Execute(ctx, "Switch route", domain.ActionContext{
		"old_route":         oldRoute,
		"alternative_route": newRoute,
	})
}

// ClearCache clears cacheType for service.
func (e *Executor) ClearCache(ctx context.Context, service, cacheType string) bool {
	return e.Execute(ctx, "Clear cache", domain.ActionContext{
		"service_name": service,
		"cache_type":   cacheType,
	})
}

// ScaleUp scales deployment to replicas, remembering replicas-1 for rollback.
func (e *Executor) ScaleUp(ctx context.Context, deployment string, replicas int, namespace string) bool {
	return e.Execute(ctx, "Scale up", domain.ActionContext{
		"deployment_name": deployment,
		"replicas":        replicas,
		"namespace":       namespace,
		"old_replicas":    replicas - 1,
	})
}

// ScaleDown scales deployment to replicas, remembering replicas+1 for rollback.
func (e *Executor) ScaleDown(ctx context.Context, deployment string, replicas int, namespace string) bool {
	return e.Execute(ctx, "Scale down", domain.ActionContext{
		"deployment_name": deployment,
		"replicas":        replicas,
		"namespace":       namespace,
		"old_replicas":    replicas + 1,
	})
}

// Failover moves service from primaryRegion to fallbackRegion.
func (e *Executor) Failover(ctx context.Context, service, primaryRegion, fallbackRegion string) bool {
	return e.Execute(ctx, "Failover", domain.ActionContext{
		"service_name":    service,
		"primary_region":  primaryRegion,
		"fallback_region": fallbackRegion,
	})
}

// QuarantineNode isolates nodeID from the mesh.
func (e *Executor) QuarantineNode(ctx context.Context, nodeID string) bool {
	return e.Execute(ctx, "Quarantine node", domain.ActionContext{"node_id": nodeID})
}

// ExecuteAction merges extra into a copy of actx and executes action.
func (e *Executor) ExecuteAction(
	ctx context.Context,
	action string,
	actx domain.ActionContext,
	extra map[string]any,
) bool {
	merged := actx.Clone()
	maps.Copy(merged, extra)
	return e.Execute(ctx, action, merged)
}

// ExecuteAsync runs Execute in a goroutine. The channel receives exactly one
// value and is then closed.
func (e *Executor) ExecuteAsync(ctx context.Context, action string, actx domain.ActionContext) <-chan bool {
	done := make(chan bool, 1)
	go func() {
		defer close(done)
		done <- e.Execute(ctx, action, actx)
	}()
	return done
}
