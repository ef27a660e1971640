package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/healing/catalog"
	"github.com/vietddude/healer/internal/infra/storage"
	"github.com/vietddude/healer/internal/infra/storage/memory"
)

// missingRunner reports every binary as absent so handlers fall back to simulation.
type missingRunner struct{}

func (missingRunner) Run(context.Context, string, ...string) (catalog.CommandResult, error) {
	return catalog.CommandResult{}, catalog.ErrCommandNotFound
}

func testConfig(t *testing.T) Config {
	t.Helper()
	app, err := config.Parse([]byte(`
node_id: node-test
executor:
  retry_delay: 1ms
storage:
  driver: memory
`))
	require.NoError(t, err)

	cfg := ConfigFromApp(app)
	cfg.Port = 0
	cfg.Runner = missingRunner{}
	return cfg
}

func TestConfigFromApp(t *testing.T) {
	app, err := config.Parse([]byte(`
node_id: node-a
circuit_breaker:
  failure_threshold: 7
rate_limit:
  disabled: true
planner:
  strategies:
    "High CPU": Scale up
`))
	require.NoError(t, err)

	cfg := ConfigFromApp(app)
	assert.Equal(t, "node-a", cfg.Executor.NodeID)
	require.NotNil(t, cfg.Executor.CircuitBreaker)
	assert.Equal(t, 7, cfg.Executor.CircuitBreaker.FailureThreshold)
	assert.Nil(t, cfg.Executor.RateLimit)
	assert.Equal(t, "Scale up", cfg.Strategies["High CPU"])
}

func TestNewHealer_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "cassandra"

	_, err := NewHealer(context.Background(), cfg)
	require.ErrorIs(t, err, storage.ErrUnknownDriver)
}

func TestHealer_PersistsResults(t *testing.T) {
	ctx := context.Background()
	h, err := NewHealer(ctx, testConfig(t))
	require.NoError(t, err)
	assert.IsType(t, &memory.ResultStore{}, h.Repository())

	require.True(t, h.Executor().Execute(ctx, "restart the service", domain.ActionContext{"service_name": "api"}))

	results, err := h.Repository().Recent(ctx, "node-test", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ActionRestartService, results[0].ActionType)
	assert.True(t, results[0].Success)
}

func TestHealer_PlannerUsesExecutor(t *testing.T) {
	ctx := context.Background()
	h, err := NewHealer(ctx, testConfig(t))
	require.NoError(t, err)

	issue := h.Planner().Analyze(map[string]float64{"cpu_percent": 97})
	report := h.Planner().Handle(ctx, issue, domain.ActionContext{"deployment_name": "api", "replicas": 3})
	assert.True(t, report.Executed)
	assert.True(t, report.Success)
	assert.Len(t, h.Executor().ActionHistory(0), 1)
}

func TestHealer_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := NewHealer(ctx, testConfig(t))
	require.NoError(t, err)
	require.NoError(t, h.Start(ctx))

	time.Sleep(20 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, h.Stop(stopCtx))
}
