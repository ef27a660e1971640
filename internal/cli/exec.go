package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/healer/internal/control"
	"github.com/vietddude/healer/internal/core/domain"
)

var (
	execParams   []string
	execRollback bool
)

var execCmd = &cobra.Command{
	Use:   "exec [action]",
	Short: "Execute a single recovery action and print the result",
	Example: `  healer exec "restart service" --set service_name=api
  healer exec "scale up api" --set deployment_name=api --set replicas=3`,
	Args: cobra.ExactArgs(1),
	Run:  runExec,
}

func init() {
	execCmd.Flags().StringArrayVar(&execParams, "set", nil, "action parameter as key=value (repeatable)")
	execCmd.Flags().BoolVar(&execRollback, "rollback", false, "roll the action back after it succeeds")
	rootCmd.AddCommand(execCmd)
}

// parseParams turns key=value pairs into an action context. Integer values
// are stored as ints.
func parseParams(pairs []string) (domain.ActionContext, error) {
	actx := domain.ActionContext{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		if n, err := strconv.Atoi(value); err == nil {
			actx[key] = n
			continue
		}
		actx[key] = value
	}
	return actx, nil
}

func runExec(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	actx, err := parseParams(execParams)
	if err != nil {
		slog.Error("Invalid parameters", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := control.NewHealer(ctx, control.ConfigFromApp(cfg))
	if err != nil {
		slog.Error("Failed to initialize Healer", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	exec := app.Executor()
	ok := exec.Execute(ctx, args[0], actx)
	if ok && execRollback {
		exec.RollbackLastAction(ctx)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exec.ActionHistory(0)); err != nil {
		slog.Error("Failed to encode result", "error", err)
	}

	if !ok {
		app.Close()
		os.Exit(1)
	}
}
