package domain

import (
	"fmt"
	"maps"
	"strconv"
	"time"
)

// ActionType identifies a recovery action handler.
type ActionType string

const (
	ActionRestartService ActionType = "restart_service"
	ActionSwitchRoute    ActionType = "switch_route"
	ActionClearCache     ActionType = "clear_cache"
	ActionScaleUp        ActionType = "scale_up"
	ActionScaleDown      ActionType = "scale_down"
	ActionFailover       ActionType = "failover"
	ActionQuarantineNode ActionType = "quarantine_node"
	ActionNone           ActionType = "no_action"
)

// ActionTypes lists every known action type in dispatch order.
var ActionTypes = []ActionType{
	ActionRestartService,
	ActionSwitchRoute,
	ActionClearCache,
	ActionScaleUp,
	ActionScaleDown,
	ActionFailover,
	ActionQuarantineNode,
	ActionNone,
}

// ParseActionType converts a stored value back into an ActionType.
func ParseActionType(s string) (ActionType, error) {
	for _, t := range ActionTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown action type: %q", s)
}

// RecoveryResult is the outcome of one Execute call.
type RecoveryResult struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
	NodeID       string         `json:"node_id"`
	ActionType   ActionType     `json:"action_type"`
	Success      bool           `json:"success"`
	Duration     time.Duration  `json:"duration"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	Attempts     int            `json:"attempts"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Clone returns a copy of r whose Details map is not shared with r.
func (r RecoveryResult) Clone() RecoveryResult {
	r.Details = maps.Clone(r.Details)
	return r
}

// DurationSeconds returns the elapsed wall time in seconds.
func (r RecoveryResult) DurationSeconds() float64 {
	return r.Duration.Seconds()
}

// RollbackDescriptor captures what is needed to compensate a successful action.
type RollbackDescriptor struct {
	ActionType string        `json:"action_type"`
	Context    ActionContext `json:"context"`
	Timestamp  string        `json:"timestamp"`
	NodeID     string        `json:"node_id"`
}

// ActionContext carries handler parameters keyed by name.
type ActionContext map[string]any

// Clone returns a shallow copy. A nil context clones to an empty one.
func (c ActionContext) Clone() ActionContext {
	out := make(ActionContext, len(c))
	maps.Copy(out, c)
	return out
}

// Has reports whether key is present with a non-nil value.
func (c ActionContext) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// String returns the value for key rendered as a string, or def when absent.
func (c ActionContext) String(key, def string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return def
		}
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value for key as an int, or def when absent or not numeric.
func (c ActionContext) Int(key string, def int) int {
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}
