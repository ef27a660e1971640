// Package recovery executes recovery actions with rate limiting, a circuit
// breaker and retries, and keeps a rollbackable history of what it did.
package recovery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-retry"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/healing/breaker"
	"github.com/vietddude/healer/internal/healing/catalog"
	"github.com/vietddude/healer/internal/healing/metrics"
	"github.com/vietddude/healer/internal/healing/throttle"
)

// Config holds executor settings. A nil CircuitBreaker or RateLimit disables
// that component.
type Config struct {
	NodeID          string
	MaxRetries      int
	RetryDelay      time.Duration
	MaxHistorySize  int
	MaxRollbackSize int
	CircuitBreaker  *breaker.Config
	RateLimit       *throttle.Config
}

// DefaultConfig enables both the breaker and the limiter.
func DefaultConfig() Config {
	cb := breaker.DefaultConfig()
	rl := throttle.DefaultConfig()
	return Config{
		NodeID:          "default-node",
		MaxRetries:      3,
		RetryDelay:      time.Second,
		MaxHistorySize:  1000,
		MaxRollbackSize: 100,
		CircuitBreaker:  &cb,
		RateLimit:       &rl,
	}
}

// ResultSink receives every recorded result, e.g. for persistence.
type ResultSink interface {
	Save(ctx context.Context, result *domain.RecoveryResult) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithClock sets the clock used for durations, timestamps, retry backoff,
// the breaker and the limiter.
func WithClock(c clockwork.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithResultSink forwards recorded results to sink.
func WithResultSink(sink ResultSink) Option {
	return func(e *Executor) { e.sink = sink }
}

// WithRetryStrategy replaces the linear backoff.
func WithRetryStrategy(s RetryStrategy) Option {
	return func(e *Executor) { e.strategy = s }
}

// Executor runs recovery actions for one node.
type Executor struct {
	cfg      Config
	catalog  *catalog.Catalog
	breaker  *breaker.CircuitBreaker
	limiter  *throttle.RateLimiter
	strategy RetryStrategy
	sink     ResultSink
	clock    clockwork.Clock
	logger   *slog.Logger

	mu        sync.RWMutex
	history   *boundedList[domain.RecoveryResult]
	rollbacks *boundedList[domain.RollbackDescriptor]
}

// NewExecutor creates an executor dispatching through cat.
func NewExecutor(cfg Config, cat *catalog.Catalog, opts ...Option) *Executor {
	def := DefaultConfig()
	if cfg.NodeID == "" {
		cfg.NodeID = def.NodeID
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.MaxHistorySize <= 0 {
		cfg.MaxHistorySize = def.MaxHistorySize
	}
	if cfg.MaxRollbackSize <= 0 {
		cfg.MaxRollbackSize = def.MaxRollbackSize
	}
	if cat == nil {
		cat = catalog.New(catalog.DefaultConfig(), nil)
	}

	e := &Executor{
		cfg:       cfg,
		catalog:   cat,
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		history:   newBoundedList[domain.RecoveryResult](cfg.MaxHistorySize),
		rollbacks: newBoundedList[domain.RollbackDescriptor](cfg.MaxRollbackSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.strategy == nil {
		e.strategy = LinearBackoff{Delay: cfg.RetryDelay, MaxAttempts: cfg.MaxRetries}
	}

	if cfg.CircuitBreaker != nil {
		e.breaker = breaker.New(*cfg.CircuitBreaker, e.clock)
		e.breaker.SetStateChangeCallback(func(from, to breaker.State) {
			metrics.CircuitState.WithLabelValues(cfg.NodeID).Set(float64(to))
			e.logger.Warn("Circuit breaker state changed", "from", from, "to", to)
		})
	}
	if cfg.RateLimit != nil {
		e.limiter = throttle.New(*cfg.RateLimit, e.clock)
	}

	e.logger.Info("Recovery executor initialized",
		"node_id", cfg.NodeID,
		"circuit_breaker", e.breaker != nil,
		"rate_limit", e.limiter != nil,
		"max_retries", cfg.MaxRetries,
	)
	return e
}

// NodeID returns the node this executor acts for.
func (e *Executor) NodeID() string {
	return e.cfg.NodeID
}

// Execute runs the action described by text and reports whether it succeeded.
// It never returns an error; failures are recorded in the history.
func (e *Executor) Execute(ctx context.Context, action string, actx domain.ActionContext) bool {
	start := e.clock.Now()
	if actx == nil {
		actx = domain.ActionContext{}
	}

	if e.limiter != nil && !e.limiter.Allow() {
		metrics.RateLimited.Inc()
		e.logger.Warn("Rate limit exceeded for recovery action", "action", action)
		return false
	}

	actionType := catalog.Parse(action)

	var (
		result   domain.RecoveryResult
		attempts int
	)
	err := retry.Do(ctx, sequence(), func(ctx context.Context) error {
		attempt := attempts
		if attempt > 0 {
			if err := wait(ctx, e.clock, e.strategy.GetDelay(attempt-1)); err != nil {
				return err
			}
		}
		attempts++
		metrics.ActionAttempts.WithLabelValues(string(actionType)).Inc()

		res, err := e.attempt(ctx, actionType, actx)
		if err == nil {
			result = res
			return nil
		}
		if errors.Is(err, breaker.ErrCircuitOpen) {
			metrics.CircuitRejections.Inc()
		}

		e.logger.Warn("Recovery action attempt failed",
			"action", actionType,
			"attempt", attempts,
			"max_attempts", e.cfg.MaxRetries,
			"error", err,
		)
		if e.strategy.ShouldRetry(err, attempt) {
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil {
		result = domain.RecoveryResult{
			ActionType:   actionType,
			Success:      false,
			ErrorMessage: err.Error(),
		}
		e.logger.Error("Recovery action failed after retries",
			"action", actionType, "attempts", attempts, "error", err)
	}

	result.ID = uuid.NewString()
	result.Action = action
	result.NodeID = e.cfg.NodeID
	result.ActionType = actionType
	result.Attempts = attempts
	result.Duration = e.clock.Since(start)
	result.Timestamp = e.clock.Now()

	if err == nil {
		if result.Success {
			e.logger.Info("Recovery action executed",
				"action", actionType, "duration", result.Duration, "attempts", attempts)
		} else {
			e.logger.Error("Recovery action failed", "action", actionType, "error", result.ErrorMessage)
		}
	}

	e.record(ctx, result, actx)
	return result.Success
}

// attempt dispatches once, through the breaker when enabled.
func (e *Executor) attempt(
	ctx context.Context,
	t domain.ActionType,
	actx domain.ActionContext,
) (domain.RecoveryResult, error) {
	if e.breaker == nil {
		return e.catalog.Dispatch(ctx, t, actx)
	}

	var result domain.RecoveryResult
	err := e.breaker.Call(func() error {
		res, err := e.catalog.Dispatch(ctx, t, actx)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}

// record appends to history, captures rollback state on success and forwards
// the result to the sink.
func (e *Executor) record(ctx context.Context, result domain.RecoveryResult, actx domain.ActionContext) {
	e.mu.Lock()
	if result.Success {
		e.rollbacks.Push(domain.RollbackDescriptor{
			ActionType: string(result.ActionType),
			Context:    actx.Clone(),
			Timestamp:  result.Timestamp.Format(time.RFC3339),
			NodeID:     e.cfg.NodeID,
		})
	}
	e.history.Push(result.Clone())
	e.mu.Unlock()

	label := string(result.ActionType)
	metrics.ActionsTotal.WithLabelValues(label, metrics.Result(result.Success)).Inc()
	metrics.ActionDuration.WithLabelValues(label).Observe(result.DurationSeconds())

	if e.sink == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	saved := result.Clone()
	if err := e.sink.Save(saveCtx, &saved); err != nil {
		metrics.StorageErrors.WithLabelValues("save").Inc()
		e.logger.Error("Failed to persist recovery result", "id", result.ID, "error", err)
	}
}

// ActionHistory returns copies of up to limit of the most recent results,
// oldest first. A non-positive limit returns 100.
func (e *Executor) ActionHistory(limit int) []domain.RecoveryResult {
	if limit <= 0 {
		limit = 100
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := e.history.Last(limit)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

// SuccessRate returns the fraction of successful results in the history,
// or 0 when the history is empty.
func (e *Executor) SuccessRate() float64 {
	return e.successRate(func(domain.RecoveryResult) bool { return true })
}

// SuccessRateFor is SuccessRate restricted to one action type.
func (e *Executor) SuccessRateFor(t domain.ActionType) float64 {
	return e.successRate(func(r domain.RecoveryResult) bool { return r.ActionType == t })
}

func (e *Executor) successRate(match func(domain.RecoveryResult) bool) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total, ok := 0, 0
	for _, r := range e.history.items {
		if !match(r) {
			continue
		}
		total++
		if r.Success {
			ok++
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(ok) / float64(total)
}

// CircuitBreakerStatus returns a breaker snapshot; Enabled is false when disabled.
func (e *Executor) CircuitBreakerStatus() breaker.Status {
	if e.breaker == nil {
		return breaker.Status{Enabled: false}
	}
	return e.breaker.Status()
}

// RateLimiterStatus returns a limiter snapshot; Enabled is false when disabled.
func (e *Executor) RateLimiterStatus() throttle.Status {
	if e.limiter == nil {
		return throttle.Status{Enabled: false}
	}
	return e.limiter.Status()
}

// ResetCircuitBreaker closes the breaker. It reports false when no breaker is configured.
func (e *Executor) ResetCircuitBreaker() bool {
	if e.breaker == nil {
		return false
	}
	e.breaker.Reset()
	e.logger.Info("Circuit breaker reset", "node_id", e.cfg.NodeID)
	return true
}
