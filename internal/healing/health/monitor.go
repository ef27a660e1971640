package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/healing/breaker"
	"github.com/vietddude/healer/internal/healing/throttle"
)

// minSamples is the history size below which the success rate is not judged.
const minSamples = 5

// StatusSource exposes read-only executor state.
type StatusSource interface {
	NodeID() string
	CircuitBreakerStatus() breaker.Status
	RateLimiterStatus() throttle.Status
	SuccessRate() float64
	ActionHistory(limit int) []domain.RecoveryResult
	RollbackDepth() int
}

// CheckFunc probes a dependency such as the result store.
type CheckFunc func(ctx context.Context) error

// Monitor aggregates health status from the executor and its dependencies.
type Monitor struct {
	source StatusSource

	mu         sync.RWMutex
	checks     map[string]CheckFunc
	lastReport *HealthReport
}

// NewMonitor creates a new health monitor.
func NewMonitor(source StatusSource) *Monitor {
	return &Monitor{
		source: source,
		checks: make(map[string]CheckFunc),
	}
}

// AddCheck registers a named dependency check.
func (m *Monitor) AddCheck(name string, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = fn
}

// CheckHealth builds a fresh report.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	report := HealthReport{
		SystemStatus:   StatusHealthy,
		NodeID:         m.source.NodeID(),
		CircuitBreaker: m.source.CircuitBreakerStatus(),
		RateLimiter:    m.source.RateLimiterStatus(),
		SuccessRate:    m.source.SuccessRate(),
		RecentActions:  len(m.source.ActionHistory(0)),
		RollbackDepth:  m.source.RollbackDepth(),
		CheckedAt:      time.Now(),
	}

	m.mu.RLock()
	checks := make(map[string]CheckFunc, len(m.checks))
	for name, fn := range m.checks {
		checks[name] = fn
	}
	m.mu.RUnlock()

	componentFailed := false
	if len(checks) > 0 {
		report.Components = make(map[string]string, len(checks))
		for name, fn := range checks {
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := fn(checkCtx)
			cancel()
			if err != nil {
				report.Components[name] = err.Error()
				componentFailed = true
			} else {
				report.Components[name] = "ok"
			}
		}
	}

	// Evaluate Status
	switch {
	case report.CircuitBreaker.Enabled && report.CircuitBreaker.State == breaker.StateOpen:
		report.SystemStatus = StatusCritical
	case report.CircuitBreaker.Enabled && report.CircuitBreaker.State == breaker.StateHalfOpen,
		report.RateLimiter.Saturated(),
		report.RecentActions >= minSamples && report.SuccessRate < 0.5,
		componentFailed:
		report.SystemStatus = StatusDegraded
	}

	m.mu.Lock()
	m.lastReport = &report
	m.mu.Unlock()
	return report
}

// LastReport returns the most recent report, if any.
func (m *Monitor) LastReport() (HealthReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastReport == nil {
		return HealthReport{}, false
	}
	return *m.lastReport, true
}
