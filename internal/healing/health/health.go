// Package health reports executor health and exposes the HTTP and gRPC surfaces.
package health

import (
	"time"

	"github.com/vietddude/healer/internal/healing/breaker"
	"github.com/vietddude/healer/internal/healing/throttle"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// HealthReport contains the full executor health report.
type HealthReport struct {
	SystemStatus   SystemStatus      `json:"system_status"`
	NodeID         string            `json:"node_id"`
	CircuitBreaker breaker.Status    `json:"circuit_breaker"`
	RateLimiter    throttle.Status   `json:"rate_limiter"`
	SuccessRate    float64           `json:"success_rate"`
	RecentActions  int               `json:"recent_actions"`
	RollbackDepth  int               `json:"rollback_depth"`
	Components     map[string]string `json:"components,omitempty"`
	CheckedAt      time.Time         `json:"checked_at"`
}
