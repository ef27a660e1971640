package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/healer/internal/control"
	"github.com/vietddude/healer/internal/infra/storage"
)

var (
	historyLimit int
	historyNode  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show persisted recovery results for a node",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of results to show")
	historyCmd.Flags().StringVar(&historyNode, "node", "", "node id (default is the configured node)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if historyNode == "" {
		historyNode = cfg.NodeID
	}

	ctx := context.Background()
	app, err := control.NewHealer(ctx, control.ConfigFromApp(cfg))
	if err != nil {
		slog.Error("Failed to initialize Healer", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := printHistory(ctx, os.Stdout, app.Repository(), historyNode, historyLimit); err != nil {
		slog.Error("Failed to load history", "error", err)
		app.Close()
		os.Exit(1)
	}
}

// printHistory writes the newest limit results for nodeID as a table.
func printHistory(ctx context.Context, out io.Writer, repo storage.ResultRepository, nodeID string, limit int) error {
	results, err := repo.Recent(ctx, nodeID, limit)
	if err != nil {
		return fmt.Errorf("failed to read results for %s: %w", nodeID, err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIME\tACTION\tTYPE\tRESULT\tATTEMPTS\tDURATION\tERROR")
	for _, r := range results {
		result := "ok"
		if !r.Success {
			result = "failed"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.Action, r.ActionType, result,
			r.Attempts, r.Duration.Round(time.Millisecond), r.ErrorMessage)
	}
	return w.Flush()
}
