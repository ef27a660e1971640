package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/healing/catalog"
	"github.com/vietddude/healer/internal/healing/planner"
	"github.com/vietddude/healer/internal/healing/recovery"
	"github.com/vietddude/healer/internal/healing/throttle"
)

type demoAction struct {
	action string
	actx   domain.ActionContext
}

var demoActions = []demoAction{
	{"restart service", domain.ActionContext{"service_name": "mesh-agent"}},
	{"switch route", domain.ActionContext{"old_route": "route-a", "alternative_route": "route-b"}},
	{"clear cache", domain.ActionContext{"cache_type": "dns"}},
	{"do something unknown", nil},
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	nodeID := os.Getenv("HEALER_NODE_ID")
	if nodeID == "" {
		nodeID = "demo-node"
	}

	ctx := context.Background()

	// 1. Create executor with a tight rate limit
	cfg := recovery.DefaultConfig()
	cfg.NodeID = nodeID
	cfg.RetryDelay = 100 * time.Millisecond
	cfg.RateLimit = &throttle.Config{MaxActions: 5, Window: 30 * time.Second}

	exec := recovery.NewExecutor(cfg, catalog.New(catalog.DefaultConfig(), nil))

	fmt.Println("=== Executing Recovery Actions ===")

	// 2. Run a few actions through the parser
	for _, a := range demoActions {
		ok := exec.Execute(ctx, a.action, a.actx)
		fmt.Printf("%-22s -> %v\n", a.action, ok)
	}

	// 3. Exhaust the rate limiter
	for i := 0; i < 3; i++ {
		ok := exec.QuarantineNode(ctx, fmt.Sprintf("node-%d", i))
		fmt.Printf("quarantine node-%d      -> %v\n", i, ok)
	}

	fmt.Println()

	// 4. Roll back the most recent successful action
	fmt.Println("=== Rollback ===")
	fmt.Printf("Rollback depth: %d\n", exec.RollbackDepth())
	fmt.Printf("Rolled back: %v\n", exec.RollbackLastAction(ctx))
	fmt.Println()

	// 5. Let the planner pick a recovery
	fmt.Println("=== Planner ===")
	p := planner.New(exec, nil, nil, nil)
	issue := p.Analyze(map[string]float64{"memory_percent": 92})
	report := p.Handle(ctx, issue, nil)
	fmt.Printf("Issue: %s, Action: %s, Executed: %v, Success: %v\n",
		report.Issue, report.Action, report.Executed, report.Success)
	fmt.Println()

	// 6. Show status
	cb := exec.CircuitBreakerStatus()
	rl := exec.RateLimiterStatus()
	fmt.Println("=== Status ===")
	fmt.Printf("Circuit breaker: %s (failures=%d)\n", cb.State, cb.Failures)
	fmt.Printf("Rate limiter: %d / %d in %.0fs\n", rl.CurrentActions, rl.MaxActions, rl.WindowSeconds)
	fmt.Printf("Success rate: %.1f%%\n", exec.SuccessRate()*100)
	for _, r := range exec.ActionHistory(10) {
		fmt.Printf("  %s %-18s success=%v attempts=%d %s\n",
			r.Timestamp.Format(time.TimeOnly), r.ActionType, r.Success, r.Attempts, r.ErrorMessage)
	}
}
