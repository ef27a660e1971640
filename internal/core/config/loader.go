package config

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/healer/internal/healing/breaker"
	"github.com/vietddude/healer/internal/healing/catalog"
	"github.com/vietddude/healer/internal/healing/throttle"
	"github.com/vietddude/healer/internal/infra/storage"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${ENV} references and applying defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.NodeID == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			c.NodeID = host
		} else {
			c.NodeID = "default-node"
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Executor.MaxRetries == 0 {
		c.Executor.MaxRetries = 3
	}
	if c.Executor.RetryDelay == 0 {
		c.Executor.RetryDelay = time.Second
	}
	if c.Executor.MaxHistorySize == 0 {
		c.Executor.MaxHistorySize = 1000
	}
	if c.Executor.MaxRollbackSize == 0 {
		c.Executor.MaxRollbackSize = 100
	}

	cb := breaker.DefaultConfig()
	if c.CircuitBreaker.FailureThreshold == 0 {
		c.CircuitBreaker.FailureThreshold = cb.FailureThreshold
	}
	if c.CircuitBreaker.SuccessThreshold == 0 {
		c.CircuitBreaker.SuccessThreshold = cb.SuccessThreshold
	}
	if c.CircuitBreaker.Timeout == 0 {
		c.CircuitBreaker.Timeout = cb.Timeout
	}

	rl := throttle.DefaultConfig()
	if c.RateLimit.MaxActions == 0 {
		c.RateLimit.MaxActions = rl.MaxActions
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = rl.Window
	}

	actions := catalog.DefaultConfig()
	if c.Actions.CommandTimeout == 0 {
		c.Actions.CommandTimeout = actions.CommandTimeout
	}
	if c.Actions.DefaultService == "" {
		c.Actions.DefaultService = actions.DefaultService
	}
	if c.Actions.DefaultNamespace == "" {
		c.Actions.DefaultNamespace = actions.DefaultNamespace
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Storage.PruneSchedule == "" {
		c.Storage.PruneSchedule = "@hourly"
	}
}

// Validate checks values that defaults cannot fix.
func (c *AppConfig) Validate() error {
	if c.Executor.MaxRetries < 0 || c.Executor.RetryDelay < 0 {
		return fmt.Errorf("executor: max_retries and retry_delay must not be negative")
	}
	if c.Executor.MaxHistorySize < 0 || c.Executor.MaxRollbackSize < 0 {
		return fmt.Errorf("executor: buffer sizes must not be negative")
	}
	if c.CircuitBreaker.FailureThreshold < 0 || c.CircuitBreaker.SuccessThreshold < 0 || c.CircuitBreaker.Timeout < 0 {
		return fmt.Errorf("circuit_breaker: thresholds and timeout must not be negative")
	}
	if c.RateLimit.MaxActions < 0 || c.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit: max_actions and window must not be negative")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("storage: redis driver requires redis.url")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("storage: postgres driver requires database.url")
		}
	default:
		return fmt.Errorf("storage: %w: %q", storage.ErrUnknownDriver, c.Storage.Driver)
	}
	if c.Storage.Retention < 0 {
		return fmt.Errorf("storage: retention must not be negative")
	}
	if _, err := cron.ParseStandard(c.Storage.PruneSchedule); err != nil {
		return fmt.Errorf("storage: invalid prune_schedule %q: %w", c.Storage.PruneSchedule, err)
	}
	return nil
}
