package config

import (
	"time"

	"github.com/vietddude/healer/internal/healing/breaker"
	"github.com/vietddude/healer/internal/healing/catalog"
	"github.com/vietddude/healer/internal/healing/throttle"
	redisclient "github.com/vietddude/healer/internal/infra/redis"
	"github.com/vietddude/healer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	NodeID         string               `yaml:"node_id"`
	Server         ServerConfig         `yaml:"server"`
	Executor       ExecutorConfig       `yaml:"executor"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Actions        catalog.Config       `yaml:"actions"`
	Planner        PlannerConfig        `yaml:"planner"`
	Storage        StorageConfig        `yaml:"storage"`
	Redis          redisclient.Config   `yaml:"redis"`
	Database       postgres.Config      `yaml:"database"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// ServerConfig holds HTTP and gRPC listener settings.
type ServerConfig struct {
	Port     int `yaml:"port"`
	GRPCPort int `yaml:"grpc_port"` // 0 = disabled
}

// ExecutorConfig holds retry and buffer settings.
type ExecutorConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	MaxHistorySize  int           `yaml:"max_history_size"`
	MaxRollbackSize int           `yaml:"max_rollback_size"`
}

// CircuitBreakerConfig enables and tunes the breaker.
type CircuitBreakerConfig struct {
	Disabled       bool `yaml:"disabled"`
	breaker.Config `yaml:",inline"`
}

// RateLimitConfig enables and tunes the limiter.
type RateLimitConfig struct {
	Disabled        bool `yaml:"disabled"`
	throttle.Config `yaml:",inline"`
}

// PlannerConfig holds issue to action overrides.
type PlannerConfig struct {
	Strategies map[string]string `yaml:"strategies"`
}

// StorageConfig selects where results are persisted.
type StorageConfig struct {
	Driver        string        `yaml:"driver"`         // memory, redis, postgres
	Retention     time.Duration `yaml:"retention"`      // 0 = keep forever
	PruneSchedule string        `yaml:"prune_schedule"` // cron spec
	Migrate       bool          `yaml:"migrate"`        // run postgres migrations on start
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)
