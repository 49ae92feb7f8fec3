// Package main is the entry point for the ticket-monitor CLI.
//
// Usage:
//
//	ticket-monitor serve      # Start the control API and poll loop
//	ticket-monitor run-once   # Run a single poll cycle and print its summary
//	ticket-monitor token -o ops  # Mint a control API token
//	ticket-monitor validate   # Check configuration and rules
//	ticket-monitor version    # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorrc/ticket-monitor/internal/adapters/secondary/freshdesk"
	"github.com/lorrc/ticket-monitor/internal/config"
	"github.com/lorrc/ticket-monitor/internal/core/ports"
	"github.com/lorrc/ticket-monitor/internal/core/rules"
	"github.com/lorrc/ticket-monitor/internal/core/services"
	"github.com/lorrc/ticket-monitor/internal/infrastructure/logging"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ticket-monitor",
	Short: "Poll Freshdesk and apply escalation rules",
	Long: `ticket-monitor periodically fetches tickets from Freshdesk, evaluates each
one against a set of rules and pushes updates for the ones that match.

The poll loop is controlled over HTTP:
  GET  /status   report whether the loop is running
  POST /start    start the loop
  POST /stop     stop the loop

Configuration comes from environment variables (or a .env file):
  FRESHDESK_DOMAIN=acme.freshdesk.com
  FRESHDESK_API_KEY=...
  POLLING_INTERVAL=300`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ticket-monitor %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the structured logger from configuration
func newLogger(cfg *config.Config) *slog.Logger {
	return logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
}

// newFreshdeskClient builds the provider client from configuration
func newFreshdeskClient(cfg *config.Config) *freshdesk.Client {
	return freshdesk.NewClient(freshdesk.Config{
		Domain:            cfg.Freshdesk.Domain,
		BaseURL:           cfg.Freshdesk.BaseURL,
		APIKey:            cfg.Freshdesk.APIKey,
		Timeout:           cfg.Freshdesk.RequestTimeout,
		RequestsPerSecond: cfg.Freshdesk.RateLimitRPS,
		Burst:             cfg.Freshdesk.RateLimitBurst,
	}, nil)
}

// newPoller loads the rule set and builds the poll loop around provider.
func newPoller(
	cfg *config.Config,
	provider ports.TicketProvider,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) (*services.Poller, error) {
	evaluator, err := rules.LoadFile(cfg.Monitor.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	logger.Info("rules loaded", "count", len(evaluator.Rules()), "file", cfg.Monitor.RulesFile)

	return services.NewPoller(provider, evaluator, broadcaster, cfg.Monitor.PollingInterval, logger), nil
}
