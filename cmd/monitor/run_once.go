package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lorrc/ticket-monitor/internal/config"
)

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Run a single poll cycle and print its summary",
	Long: `Fetch tickets once, apply the rules, push any updates and print the
cycle summary as JSON. No HTTP server is started.

Exit codes:
  0 - the cycle ran (individual ticket failures are reported in the summary)
  1 - configuration was invalid or tickets could not be fetched`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runOnceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	client := newFreshdeskClient(cfg)
	defer client.Close()

	poller, err := newPoller(cfg, client, nil, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary := poller.RunCycle(ctx)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if summary.FetchError != "" {
		return fmt.Errorf("fetch failed: %s", summary.FetchError)
	}
	return nil
}
