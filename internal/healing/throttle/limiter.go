// Package throttle bounds how many recovery actions an executor may run in a time window.
package throttle

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config controls the sliding window.
type Config struct {
	MaxActions int           `yaml:"max_actions"`
	Window     time.Duration `yaml:"window"`
}

// DefaultConfig allows 10 actions per minute.
func DefaultConfig() Config {
	return Config{
		MaxActions: 10,
		Window:     60 * time.Second,
	}
}

// Status is a read-only snapshot of the limiter.
type Status struct {
	Enabled        bool    `json:"enabled"`
	CurrentActions int     `json:"current_actions"`
	MaxActions     int     `json:"max_actions"`
	WindowSeconds  float64 `json:"window_seconds"`
}

// MarshalJSON reports only the enabled flag for a disabled limiter.
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Enabled {
		return []byte(`{"enabled":false}`), nil
	}
	type status Status
	return json.Marshal(status(s))
}

// Saturated reports whether the next Allow call would be rejected.
func (s Status) Saturated() bool {
	return s.Enabled && s.CurrentActions >= s.MaxActions
}

// RateLimiter admits at most MaxActions calls in any Window-long interval.
type RateLimiter struct {
	cfg   Config
	clock clockwork.Clock

	mu    sync.Mutex
	times []time.Time // oldest first
}

// New creates a limiter. A nil clock uses the wall clock.
func New(cfg Config, clock clockwork.Clock) *RateLimiter {
	def := DefaultConfig()
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = def.MaxActions
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{
		cfg:   cfg,
		clock: clock,
		times: make([]time.Time, 0, cfg.MaxActions),
	}
}

// Allow records the call and returns true if the window has room.
// A rejected call is not recorded.
func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.evict(now)

	if len(l.times) >= l.cfg.MaxActions {
		return false
	}
	l.times = append(l.times, now)
	return true
}

// evict drops timestamps older than the window from the front.
func (l *RateLimiter) evict(now time.Time) {
	i := 0
	for i < len(l.times) && now.Sub(l.times[i]) > l.cfg.Window {
		i++
	}
	if i > 0 {
		l.times = append(l.times[:0], l.times[i:]...)
	}
}

// Status counts the entries still inside the window without modifying it.
func (l *RateLimiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	current := 0
	for _, t := range l.times {
		if now.Sub(t) <= l.cfg.Window {
			current++
		}
	}

	return Status{
		Enabled:        true,
		CurrentActions: current,
		MaxActions:     l.cfg.MaxActions,
		WindowSeconds:  l.cfg.Window.Seconds(),
	}
}
