// Package catalog turns action descriptions into concrete recovery side effects.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

// Handler performs one recovery action. Duration, attempts and history fields
// of the returned result are filled in by the executor.
type Handler func(ctx context.Context, actx domain.ActionContext) (domain.RecoveryResult, error)

// RouteSwitcher moves traffic for a node onto another route.
type RouteSwitcher interface {
	SwitchRoute(ctx context.Context, targetNode, route string) error
}

// Config holds handler defaults.
type Config struct {
	CommandTimeout   time.Duration `yaml:"command_timeout"`
	DefaultService   string        `yaml:"default_service"`
	DefaultNamespace string        `yaml:"default_namespace"`
}

// DefaultConfig returns a 30s command timeout.
func DefaultConfig() Config {
	return Config{
		CommandTimeout:   30 * time.Second,
		DefaultService:   "mesh-agent",
		DefaultNamespace: "default",
	}
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRouteSwitcher sets the routing collaborator used by SwitchRoute.
func WithRouteSwitcher(rs RouteSwitcher) Option {
	return func(c *Catalog) { c.switcher = rs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// Catalog dispatches action types to handlers.
type Catalog struct {
	cfg      Config
	runner   CommandRunner
	switcher RouteSwitcher
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers map[domain.ActionType]Handler
}

// New creates a catalog with the built-in handlers. A nil runner executes
// commands on the local host.
func New(cfg Config, runner CommandRunner, opts ...Option) *Catalog {
	def := DefaultConfig()
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.DefaultService == "" {
		cfg.DefaultService = def.DefaultService
	}
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = def.DefaultNamespace
	}
	if runner == nil {
		runner = NewExecRunner(cfg.CommandTimeout)
	}

	c := &Catalog{
		cfg:    cfg,
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.handlers = map[domain.ActionType]Handler{
		domain.ActionRestartService: c.restartService,
		domain.ActionSwitchRoute:    c.switchRoute,
		domain.ActionClearCache:     c.clearCache,
		domain.ActionScaleUp:        c.scaleUp,
		domain.ActionScaleDown:      c.scaleDown,
		domain.ActionFailover:       c.failover,
		domain.ActionQuarantineNode: c.quarantineNode,
		domain.ActionNone:           c.noAction,
	}
	return c
}

// Register replaces the handler for t.
func (c *Catalog) Register(t domain.ActionType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = h
}

// Dispatch runs the handler for t.
func (c *Catalog) Dispatch(
	ctx context.Context,
	t domain.ActionType,
	actx domain.ActionContext,
) (domain.RecoveryResult, error) {
	c.mu.RLock()
	h, ok := c.handlers[t]
	c.mu.RUnlock()
	if !ok {
		h = c.noAction
	}
	if actx == nil {
		actx = domain.ActionContext{}
	}

	result, err := h(ctx, actx)
	if err != nil {
		return domain.RecoveryResult{}, err
	}
	result.ActionType = t
	return result, nil
}

func succeeded(details map[string]any) domain.RecoveryResult {
	return domain.RecoveryResult{Success: true, Details: details}
}

// setIfPresent copies the string values of keys that are present in actx.
func setIfPresent(details map[string]any, actx domain.ActionContext, keys ...string) {
	for _, k := range keys {
		if actx.Has(k) {
			details[k] = actx.String(k, "")
		}
	}
}

type restartMechanism struct {
	method string
	name   string
	args   []string
}

// restartService tries systemd, then docker, then a kubernetes rolling restart.
// When none is available or all fail, the restart is reported as simulated.
func (c *Catalog) restartService(
	ctx context.Context,
	actx domain.ActionContext,
) (domain.RecoveryResult, error) {
	service := actx.String("service_name", c.cfg.DefaultService)
	namespace := actx.String("namespace", c.cfg.DefaultNamespace)
	nodeID := actx.String("node_id", "unknown")

	mechanisms := []restartMechanism{
		{"systemd", "systemctl", []string{"restart", service}},
		{"docker", "docker", []string{"restart", service}},
		{"kubernetes", "kubectl", []string{"rollout", "restart", "deployment/" + service, "-n", namespace}},
	}

	for _, m := range mechanisms {
		_, err := c.runner.Run(ctx, m.name, m.args...)
		if err == nil {
			c.logger.Info("Service restarted", "service", service, "method", m.method)
			return succeeded(map[string]any{"method": m.method, "service": service}), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.RecoveryResult{}, ctxErr
		}
		if errors.Is(err, ErrCommandNotFound) {
			c.logger.Debug("Restart mechanism unavailable", "method", m.method)
		} else {
			c.logger.Warn("Restart mechanism failed", "method", m.method, "service", service, "error", err)
		}
	}

	c.logger.Warn("No container manager restarted service, using simulated restart", "service", service)
	return succeeded(map[string]any{
		"method":  "simulated",
		"service": service,
		"node_id": nodeID,
	}), nil
}

func (c *Catalog) switchRoute(
	ctx context.Context,
	actx domain.ActionContext,
) (domain.RecoveryResult, error) {
	target := actx.String("target_node", "")
	route := actx.String("alternative_route", "")

	details := map[string]any{"method": "simulated"}
	setIfPresent(details, actx, "target_node", "old_route")
	if route != "" {
		details["route"] = route
	}

	if c.switcher != nil {
		err := c.switcher.SwitchRoute(ctx, target, route)
		if err == nil {
			c.logger.Info("Route switched", "target_node", target, "route", route)
			details["method"] = "routing"
			return succeeded(details), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.RecoveryResult{}, ctxErr
		}
		c.logger.Warn("Route switcher unavailable, using simulated switch", "error", err)
	}

	return succeeded(details), nil
}

func (c *Catalog) clearCache(
	_ context.Context,
	actx domain.ActionContext,
) (domain.RecoveryResult, error) {
	cacheType := actx.String("cache_type", "all")
	c.logger.Info("Clearing cache", "cache_type", cacheType)

	details := map[string]any{"cache_type": cacheType}
	setIfPresent(details, actx, "service_name")
	return succeeded(details), nil
}

func (c *Catalog) scaleUp(ctx context.Context, actx domain.ActionContext) (domain.RecoveryResult, error) {
	return c.scale(ctx, actx, "up")
}

func (c *Catalog) scaleDown(ctx context.Context, actx domain.ActionContext) (domain.RecoveryResult, error) {
	return c.scale(ctx, actx, "down")
}

// scale sets the replica count through kubectl, falling back to a simulated
// result on any command error.
func (c *Catalog) scale(
	ctx context.Context,
	actx domain.ActionContext,
	direction string,
) (domain.RecoveryResult, error) {
	deployment := actx.String("deployment_name", actx.String("service_name", c.cfg.DefaultService))
	namespace := actx.String("namespace", c.cfg.DefaultNamespace)
	replicas := actx.Int("replicas", 1)

	_, err := c.runner.Run(ctx, "kubectl", "scale",
		"deployment/"+deployment,
		"--replicas="+strconv.Itoa(replicas),
		"-n", namespace,
	)
	if err == nil {
		c.logger.Info("Deployment scaled", "direction", direction, "deployment", deployment, "replicas", replicas)
		return succeeded(map[string]any{
			"method":     "kubernetes",
			"deployment": deployment,
			"replicas":   replicas,
		}), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.RecoveryResult{}, ctxErr
	}

	c.logger.Warn("Scale command failed, using simulated scale",
		"direction", direction, "deployment", deployment, "error", err)
	return succeeded(map[string]any{
		"method":     "simulated",
		"deployment": deployment,
		"replicas":   replicas,
	}), nil
}

func (c *Catalog) failover(
	_ context.Context,
	actx domain.ActionContext,
) (domain.RecoveryResult, error) {
	details := map[string]any{}
	setIfPresent(details, actx, "primary_node", "backup_node", "primary_region", "fallback_region", "service_name")
	c.logger.Info("Failing over",
		"primary", actx.String("primary_node", actx.String("primary_region", "")),
		"backup", actx.String("backup_node", actx.String("fallback_region", "")))
	return succeeded(details), nil
}

func (c *Catalog) quarantineNode(
	_ context.Context,
	actx domain.ActionContext,
) (domain.RecoveryResult, error) {
	nodeID := actx.String("node_id", "unknown")
	c.logger.Warn("Quarantining node", "node_id", nodeID)
	return succeeded(map[string]any{"node_id": nodeID}), nil
}

func (c *Catalog) noAction(context.Context, domain.ActionContext) (domain.RecoveryResult, error) {
	return domain.RecoveryResult{
		Success:      false,
		ErrorMessage: "Unknown action type",
	}, nil
}
