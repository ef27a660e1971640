// Package breaker isolates a failing recovery path behind a three-state circuit breaker.
package breaker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrCircuitOpen is returned by Call while the circuit rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int `yaml:"failure_threshold"`
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int `yaml:"success_threshold"`
	// Timeout is how long the circuit stays open before allowing a probe.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns 5 failures to open, 2 successes to close, 60s open timeout.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
	}
}

// Status is a read-only snapshot of breaker state.
type Status struct {
	Enabled     bool       `json:"enabled"`
	State       State      `json:"state"`
	Failures    int        `json:"failures"`
	Successes   int        `json:"successes"`
	LastFailure *time.Time `json:"last_failure"`
}

// MarshalJSON reports only the enabled flag for a disabled breaker.
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Enabled {
		return []byte(`{"enabled":false}`), nil
	}
	type status Status
	return json.Marshal(status(s))
}

// CircuitBreaker guards calls to a fallible operation.
type CircuitBreaker struct {
	cfg   Config
	clock clockwork.Clock

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	openedAt    time.Time
	onChange    func(from, to State)
	pending     [][2]State
}

// New creates a closed breaker. Zero config fields take their defaults.
func New(cfg Config, clock clockwork.Clock) *CircuitBreaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CircuitBreaker{
		cfg:   cfg,
		clock: clock,
		state: StateClosed,
	}
}

// SetStateChangeCallback registers fn to run after every transition.
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onChange = fn
}

// Call runs fn unless the circuit is open and returns fn's error.
// Errors caused by context cancellation leave the counters untouched.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.clock.Since(cb.openedAt) < cb.cfg.Timeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transitionTo(StateHalfOpen)
	}
	notify := cb.takeNotification()
	cb.mu.Unlock()
	notify()

	err := fn()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	cb.mu.Lock()
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	notify = cb.takeNotification()
	cb.mu.Unlock()
	notify()

	return err
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.transitionTo(StateClosed)
		}
	case StateClosed:
		cb.failures = 0
		cb.successes++
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailure = cb.clock.Now()

	switch cb.state {
	case StateHalfOpen:
		cb.transitionTo(StateOpen)
	case StateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transitionTo(StateOpen)
		}
	}
}

// transitionTo must be called with mu held.
func (cb *CircuitBreaker) transitionTo(next State) {
	prev := cb.state
	cb.state = next

	switch next {
	case StateOpen:
		cb.openedAt = cb.clock.Now()
		cb.successes = 0
	case StateHalfOpen:
		cb.successes = 0
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
	}

	if prev != next {
		cb.pending = append(cb.pending, [2]State{prev, next})
	}
}

// takeNotification drains pending transitions into a func that runs the
// callback outside the lock. Must be called with mu held.
func (cb *CircuitBreaker) takeNotification() func() {
	if cb.onChange == nil || len(cb.pending) == 0 {
		cb.pending = cb.pending[:0]
		return func() {}
	}
	fn := cb.onChange
	pending := append([][2]State(nil), cb.pending...)
	cb.pending = cb.pending[:0]
	return func() {
		for _, p := range pending {
			fn(p[0], p[1])
		}
	}
}

// State returns the current position without triggering a timeout transition.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Status returns a snapshot of the breaker.
func (cb *CircuitBreaker) Status() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := Status{
		Enabled:   true,
		State:     cb.state,
		Failures:  cb.failures,
		Successes: cb.successes,
	}
	if !cb.lastFailure.IsZero() {
		lf := cb.lastFailure
		st.LastFailure = &lf
	}
	return st
}

// Reset forces the breaker closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.transitionTo(StateClosed)
	cb.lastFailure = time.Time{}
	cb.openedAt = time.Time{}
	notify := cb.takeNotification()
	cb.mu.Unlock()
	notify()
}
